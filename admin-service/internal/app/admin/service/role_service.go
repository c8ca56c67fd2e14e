package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"orchardfleet/admin-service/internal/app/admin/entity"
	"orchardfleet/admin-service/internal/app/admin/infrastructure"
	"orchardfleet/admin-service/internal/app/admin/repository"

	"orchardfleet/pkg/logger"
)

// RoleService управляет реестром ролей и назначением разрешений
type RoleService struct {
	roleRepo  repository.RoleRepository
	publisher infrastructure.EventPublisher
}

func NewRoleService(roleRepo repository.RoleRepository, publisher infrastructure.EventPublisher) *RoleService {
	return &RoleService{
		roleRepo:  roleRepo,
		publisher: publisher,
	}
}

// Create создает роль; код роли глобально уникален
func (s *RoleService) Create(ctx context.Context, req *entity.CreateRoleRequest) (*entity.Role, error) {
	role := &entity.Role{
		Name:         req.Name,
		Code:         req.Code,
		Description:  req.Description,
		Status:       entity.RoleStatusEnabled,
		MiniAppLogin: req.MiniAppLogin,
	}

	if err := s.roleRepo.Create(ctx, role); err != nil {
		if errors.Is(err, repository.ErrDuplicateCode) {
			return nil, ErrDuplicateCode
		}
		return nil, fmt.Errorf("failed to create role: %w", err)
	}

	return role, nil
}

// GetByID получает роль
func (s *RoleService) GetByID(ctx context.Context, id int64) (*entity.Role, error) {
	role, err := s.roleRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRoleNotFound
		}
		return nil, fmt.Errorf("failed to get role: %w", err)
	}

	return role, nil
}

// Update изменяет роль. Конкурентные правки одной роли разрешаются
// по принципу "последний пишущий побеждает".
func (s *RoleService) Update(ctx context.Context, id int64, req *entity.UpdateRoleRequest) (*entity.Role, error) {
	role, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != "" {
		role.Name = req.Name
	}
	if req.Code != "" {
		role.Code = req.Code
	}
	if req.Description != nil {
		role.Description = *req.Description
	}
	if req.Status != "" {
		role.Status = req.Status
	}
	if req.MiniAppLogin != nil {
		role.MiniAppLogin = *req.MiniAppLogin
	}

	if err := s.roleRepo.Update(ctx, role); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateCode):
			return nil, ErrDuplicateCode
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrRoleNotFound
		}
		return nil, fmt.Errorf("failed to update role: %w", err)
	}

	return role, nil
}

// Delete удаляет роль. Удаление блокируется, пока роль назначена пользователям.
func (s *RoleService) Delete(ctx context.Context, id int64) error {
	users, err := s.roleRepo.CountUsers(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to count role users: %w", err)
	}
	if users > 0 {
		return ErrRoleInUse
	}

	if err := s.roleRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrRoleNotFound
		}
		return fmt.Errorf("failed to delete role: %w", err)
	}

	return nil
}

// List возвращает страницу ролей, аннотированных количеством пользователей
func (s *RoleService) List(ctx context.Context, filter entity.RoleListFilter) (*entity.RoleListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	roles, total, err := s.roleRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}

	// Отдельный count-запрос на каждую роль - принятая цена N+1 на
	// админских объемах
	annotated := make([]entity.RoleWithCount, 0, len(roles))
	for _, role := range roles {
		count, err := s.roleRepo.CountUsers(ctx, role.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to count users for role %d: %w", role.ID, err)
		}
		annotated = append(annotated, entity.RoleWithCount{Role: role, UserCount: count})
	}

	return &entity.RoleListResponse{
		Roles: annotated,
		Total: total,
		Page:  filter.Page,
	}, nil
}

// AssignPermissions полностью заменяет набор разрешений роли.
// Пустой список снимает все разрешения; несуществующие id отбрасываются
// молча. Возвращает фактически назначенный набор.
func (s *RoleService) AssignPermissions(ctx context.Context, roleID int64, permissionIDs []int64) ([]entity.Permission, error) {
	if _, err := s.GetByID(ctx, roleID); err != nil {
		return nil, err
	}

	if err := s.roleRepo.ReplacePermissions(ctx, roleID, permissionIDs); err != nil {
		return nil, fmt.Errorf("failed to assign permissions: %w", err)
	}

	assigned, err := s.roleRepo.GetPermissionsByRoleID(ctx, roleID)
	if err != nil {
		return nil, fmt.Errorf("failed to read assigned permissions: %w", err)
	}

	s.publishPermissionChange(ctx, roleID, len(assigned))

	return assigned, nil
}

// GetPermissions возвращает разрешения роли
func (s *RoleService) GetPermissions(ctx context.Context, roleID int64) ([]entity.Permission, error) {
	if _, err := s.GetByID(ctx, roleID); err != nil {
		return nil, err
	}

	permissions, err := s.roleRepo.GetPermissionsByRoleID(ctx, roleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get role permissions: %w", err)
	}

	return permissions, nil
}

// publishPermissionChange отправляет событие аудита об изменении назначения.
// Сбой публикации не откатывает назначение - только пишется в лог.
func (s *RoleService) publishPermissionChange(ctx context.Context, roleID int64, assignedCount int) {
	if s.publisher == nil {
		return
	}

	event := entity.SecurityEvent{
		Type:       entity.EventPermissionChange,
		Detail:     fmt.Sprintf("role %d: %d permissions assigned", roleID, assignedCount),
		OccurredAt: time.Now(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return
	}

	if err := s.publisher.PublishMessage(ctx, event.Type, payload); err != nil {
		logger.Warn().Err(err).Int64("role_id", roleID).Msg("Failed to publish permission change event")
	}
}
