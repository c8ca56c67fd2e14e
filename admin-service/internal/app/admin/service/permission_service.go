package service

import (
	"context"
	"errors"
	"fmt"

	"orchardfleet/admin-service/internal/app/admin/entity"
	"orchardfleet/admin-service/internal/app/admin/repository"
)

// maxTreeDepth ограничивает рекурсию построения дерева. Модель данных
// не допускает циклов, но испорченная запись parent_id не должна
// приводить к бесконечной рекурсии - дерево обрезается.
const maxTreeDepth = 16

// Варианты дерева разрешений
const (
	TreeTypeMenu   = "menu"
	TreeTypeButton = "button"
	TreeTypeAll    = "all"
)

// PermissionService управляет узлами дерева разрешений и строит
// леса меню/кнопок из плоского списка
type PermissionService struct {
	permRepo repository.PermissionRepository
}

func NewPermissionService(permRepo repository.PermissionRepository) *PermissionService {
	return &PermissionService{permRepo: permRepo}
}

// Create создает узел разрешения. Родитель обязан существовать или быть корнем (0).
func (s *PermissionService) Create(ctx context.Context, req *entity.CreatePermissionRequest) (*entity.Permission, error) {
	parentID := req.ParentID.Int64()
	if err := s.checkParent(ctx, parentID); err != nil {
		return nil, err
	}

	status := req.Status
	if status == "" {
		status = entity.StatusNormal
	}

	perm := &entity.Permission{
		Name:      req.Name,
		Code:      req.Code,
		Type:      req.Type,
		ParentID:  parentID,
		Path:      req.Path,
		Component: req.Component,
		Icon:      req.Icon,
		SortOrder: req.SortOrder,
		Status:    status,
	}

	if err := s.permRepo.Create(ctx, perm); err != nil {
		if errors.Is(err, repository.ErrDuplicateCode) {
			return nil, ErrDuplicateCode
		}
		return nil, fmt.Errorf("failed to create permission: %w", err)
	}

	return perm, nil
}

// GetByID получает узел разрешения
func (s *PermissionService) GetByID(ctx context.Context, id int64) (*entity.Permission, error) {
	perm, err := s.permRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPermissionNotFound
		}
		return nil, fmt.Errorf("failed to get permission: %w", err)
	}

	return perm, nil
}

// Update изменяет узел разрешения; тип узла после создания не меняется
func (s *PermissionService) Update(ctx context.Context, id int64, req *entity.UpdatePermissionRequest) (*entity.Permission, error) {
	perm, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != "" {
		perm.Name = req.Name
	}
	if req.Code != "" {
		perm.Code = req.Code
	}
	if req.ParentID != nil {
		parentID := req.ParentID.Int64()
		if parentID == id {
			return nil, ErrParentNotFound
		}
		if err := s.checkParent(ctx, parentID); err != nil {
			return nil, err
		}
		perm.ParentID = parentID
	}
	if req.Path != nil {
		perm.Path = *req.Path
	}
	if req.Component != nil {
		perm.Component = *req.Component
	}
	if req.Icon != nil {
		perm.Icon = *req.Icon
	}
	if req.SortOrder != nil {
		perm.SortOrder = *req.SortOrder
	}
	if req.Status != "" {
		perm.Status = req.Status
	}

	if err := s.permRepo.Update(ctx, perm); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateCode):
			return nil, ErrDuplicateCode
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrPermissionNotFound
		}
		return nil, fmt.Errorf("failed to update permission: %w", err)
	}

	return perm, nil
}

// Delete удаляет узел. Удаление блокируется, пока у узла есть дочерние узлы.
func (s *PermissionService) Delete(ctx context.Context, id int64) error {
	children, err := s.permRepo.CountChildren(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to count children: %w", err)
	}
	if children > 0 {
		return ErrPermissionHasChildren
	}

	if err := s.permRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrPermissionNotFound
		}
		return fmt.Errorf("failed to delete permission: %w", err)
	}

	return nil
}

// GetTree строит лес разрешений запрошенного вида: только меню,
// только кнопки или комбинированный (кнопки под своими меню)
func (s *PermissionService) GetTree(ctx context.Context, treeType string) ([]*entity.PermissionTreeNode, error) {
	var (
		perms []entity.Permission
		err   error
	)

	switch treeType {
	case TreeTypeMenu:
		perms, err = s.permRepo.ListActiveByType(ctx, entity.PermissionTypeMenu)
	case TreeTypeButton:
		perms, err = s.permRepo.ListActiveByType(ctx, entity.PermissionTypeButton)
	default:
		perms, err = s.permRepo.ListActive(ctx)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to list permissions: %w", err)
	}

	if treeType == TreeTypeButton {
		// Кнопки - листья под меню, которых в этой выборке нет,
		// поэтому обычная сборка от корня 0 отбросила бы их все
		return BuildDetachedForest(perms), nil
	}

	return BuildTree(perms), nil
}

// BuildTree собирает упорядоченный лес из плоского списка узлов.
// Вход уже отфильтрован по статусу и отсортирован по sort_order;
// порядок внутри каждого уровня сохраняется.
func BuildTree(perms []entity.Permission) []*entity.PermissionTreeNode {
	return buildForest(perms, 0, 0)
}

// BuildDetachedForest собирает лес из списка, вырезанного из большого
// дерева: корнем считается каждый узел, чей родитель отсутствует в
// списке. Каждый входной узел попадает в лес ровно один раз.
func BuildDetachedForest(perms []entity.Permission) []*entity.PermissionTreeNode {
	present := make(map[int64]struct{}, len(perms))
	for _, p := range perms {
		present[p.ID] = struct{}{}
	}

	forest := []*entity.PermissionTreeNode{}
	for _, p := range perms {
		if _, ok := present[p.ParentID]; ok {
			continue
		}
		node := &entity.PermissionTreeNode{Permission: p}
		node.Children = buildForest(perms, p.ID, 1)
		forest = append(forest, node)
	}

	return forest
}

func buildForest(perms []entity.Permission, parentID int64, depth int) []*entity.PermissionTreeNode {
	if depth >= maxTreeDepth {
		return []*entity.PermissionTreeNode{}
	}

	forest := []*entity.PermissionTreeNode{}
	for _, p := range perms {
		if p.ParentID != parentID {
			continue
		}
		node := &entity.PermissionTreeNode{Permission: p}
		node.Children = buildForest(perms, p.ID, depth+1)
		forest = append(forest, node)
	}

	return forest
}

// checkParent проверяет, что родитель существует либо узел корневой
func (s *PermissionService) checkParent(ctx context.Context, parentID int64) error {
	if parentID == 0 {
		return nil
	}

	if _, err := s.permRepo.GetByID(ctx, parentID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrParentNotFound
		}
		return fmt.Errorf("failed to check parent: %w", err)
	}

	return nil
}
