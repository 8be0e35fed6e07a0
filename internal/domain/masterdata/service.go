// internal/domain/masterdata/service.go
package masterdata

import (
	"errors"
	"fmt"

	"github.com/your-org/factory-backend/internal/pkg/apperrors"
	"gorm.io/gorm"
)

// Service provides read access to master data. Master-data CRUD lives
// in a separate administration surface; the engine only looks records
// up and checks active flags.
type Service struct {
	db *gorm.DB
}

// NewService creates a new master data service
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// GetMachine retrieves an active machine by ID
func (s *Service) GetMachine(id uint) (*Machine, error) {
	var machine Machine
	if err := s.db.Preload("Branch").Where("id = ? AND is_active = ?", id, true).First(&machine).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound("machine", id)
		}
		return nil, fmt.Errorf("failed to retrieve machine: %w", err)
	}
	return &machine, nil
}

// GetMachines retrieves all active machines, optionally per branch
func (s *Service) GetMachines(branchID uint) ([]Machine, error) {
	var machines []Machine
	query := s.db.Where("is_active = ?", true)
	if branchID > 0 {
		query = query.Where("branch_id = ?", branchID)
	}
	if err := query.Find(&machines).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve machines: %w", err)
	}
	return machines, nil
}

// GetEmployee retrieves an active employee by ID
func (s *Service) GetEmployee(id uint) (*Employee, error) {
	var employee Employee
	if err := s.db.Where("id = ? AND is_active = ?", id, true).First(&employee).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound("employee", id)
		}
		return nil, fmt.Errorf("failed to retrieve employee: %w", err)
	}
	return &employee, nil
}

// GetStore retrieves an active store by ID
func (s *Service) GetStore(id uint) (*Store, error) {
	var store Store
	if err := s.db.Where("id = ? AND is_active = ?", id, true).First(&store).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound("store", id)
		}
		return nil, fmt.Errorf("failed to retrieve store: %w", err)
	}
	return &store, nil
}

// GetStores retrieves all active stores
func (s *Service) GetStores() ([]Store, error) {
	var stores []Store
	if err := s.db.Where("is_active = ?", true).Find(&stores).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve stores: %w", err)
	}
	return stores, nil
}

// GetBranches retrieves all active branches
func (s *Service) GetBranches() ([]Branch, error) {
	var branches []Branch
	if err := s.db.Where("is_active = ?", true).Find(&branches).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve branches: %w", err)
	}
	return branches, nil
}
