package service

import (
	"context"
	"testing"

	"orchardfleet/admin-service/internal/app/admin/entity"
	"orchardfleet/admin-service/internal/app/admin/repository"
	"orchardfleet/admin-service/internal/app/admin/repository/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// Хелпер: типовое дерево админки - два меню, кнопки под одним из них
func flatPermissions() []entity.Permission {
	return []entity.Permission{
		{ID: 1, Name: "Клиенты", Code: "menu.customers", Type: entity.PermissionTypeMenu, ParentID: 0, SortOrder: 1, Status: entity.StatusNormal},
		{ID: 2, Name: "Поставки", Code: "menu.shipments", Type: entity.PermissionTypeMenu, ParentID: 0, SortOrder: 2, Status: entity.StatusNormal},
		{ID: 3, Name: "Создать клиента", Code: "btn.customers.create", Type: entity.PermissionTypeButton, ParentID: 1, SortOrder: 1, Status: entity.StatusNormal},
		{ID: 4, Name: "Удалить клиента", Code: "btn.customers.delete", Type: entity.PermissionTypeButton, ParentID: 1, SortOrder: 2, Status: entity.StatusNormal},
	}
}

// ==================== Create Tests ====================

func TestPermissionService_Create_Success(t *testing.T) {
	// Arrange
	ctx := context.Background()
	permRepo := new(mocks.MockPermissionRepository)

	permRepo.On("Create", ctx, mock.AnythingOfType("*entity.Permission")).Return(nil)

	service := NewPermissionService(permRepo)

	req := &entity.CreatePermissionRequest{
		Name: "Клиенты",
		Code: "menu.customers",
		Type: entity.PermissionTypeMenu,
	}

	// Act
	perm, err := service.Create(ctx, req)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "menu.customers", perm.Code)
	assert.Equal(t, int64(0), perm.ParentID)
	assert.Equal(t, entity.StatusNormal, perm.Status) // статус по умолчанию

	permRepo.AssertExpectations(t)
}

func TestPermissionService_Create_DuplicateCode(t *testing.T) {
	// Arrange
	ctx := context.Background()
	permRepo := new(mocks.MockPermissionRepository)

	permRepo.On("Create", ctx, mock.AnythingOfType("*entity.Permission")).Return(repository.ErrDuplicateCode)

	service := NewPermissionService(permRepo)

	req := &entity.CreatePermissionRequest{
		Name: "Клиенты",
		Code: "menu.customers",
		Type: entity.PermissionTypeMenu,
	}

	// Act
	perm, err := service.Create(ctx, req)

	// Assert
	assert.Nil(t, perm)
	assert.ErrorIs(t, err, ErrDuplicateCode)
}

func TestPermissionService_Create_ParentNotFound(t *testing.T) {
	// Arrange
	ctx := context.Background()
	permRepo := new(mocks.MockPermissionRepository)

	permRepo.On("GetByID", ctx, int64(99)).Return(nil, repository.ErrNotFound)

	service := NewPermissionService(permRepo)

	req := &entity.CreatePermissionRequest{
		Name:     "Создать клиента",
		Code:     "btn.customers.create",
		Type:     entity.PermissionTypeButton,
		ParentID: entity.FlexID(99),
	}

	// Act
	perm, err := service.Create(ctx, req)

	// Assert
	assert.Nil(t, perm)
	assert.ErrorIs(t, err, ErrParentNotFound)
	permRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

// ==================== Update Tests ====================

func TestPermissionService_Update_SelfParent(t *testing.T) {
	// Arrange - узел не может стать собственным родителем
	ctx := context.Background()
	permRepo := new(mocks.MockPermissionRepository)

	existing := flatPermissions()[0]
	permRepo.On("GetByID", ctx, int64(1)).Return(&existing, nil)

	service := NewPermissionService(permRepo)

	selfID := entity.FlexID(1)
	req := &entity.UpdatePermissionRequest{ParentID: &selfID}

	// Act
	perm, err := service.Update(ctx, 1, req)

	// Assert
	assert.Nil(t, perm)
	assert.ErrorIs(t, err, ErrParentNotFound)
}

func TestPermissionService_Update_NotFound(t *testing.T) {
	// Arrange
	ctx := context.Background()
	permRepo := new(mocks.MockPermissionRepository)

	permRepo.On("GetByID", ctx, int64(99)).Return(nil, repository.ErrNotFound)

	service := NewPermissionService(permRepo)

	// Act
	perm, err := service.Update(ctx, 99, &entity.UpdatePermissionRequest{Name: "Новое имя"})

	// Assert
	assert.Nil(t, perm)
	assert.ErrorIs(t, err, ErrPermissionNotFound)
}

// ==================== Delete Tests ====================

func TestPermissionService_Delete_Success(t *testing.T) {
	// Arrange
	ctx := context.Background()
	permRepo := new(mocks.MockPermissionRepository)

	permRepo.On("CountChildren", ctx, int64(3)).Return(int64(0), nil)
	permRepo.On("Delete", ctx, int64(3)).Return(nil)

	service := NewPermissionService(permRepo)

	// Act
	err := service.Delete(ctx, 3)

	// Assert
	require.NoError(t, err)
	permRepo.AssertExpectations(t)
}

func TestPermissionService_Delete_HasChildren(t *testing.T) {
	// Arrange - меню с кнопками удалить нельзя
	ctx := context.Background()
	permRepo := new(mocks.MockPermissionRepository)

	permRepo.On("CountChildren", ctx, int64(1)).Return(int64(2), nil)

	service := NewPermissionService(permRepo)

	// Act
	err := service.Delete(ctx, 1)

	// Assert
	assert.ErrorIs(t, err, ErrPermissionHasChildren)
	permRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

// ==================== GetTree Tests ====================

func TestPermissionService_GetTree_All(t *testing.T) {
	// Arrange
	ctx := context.Background()
	permRepo := new(mocks.MockPermissionRepository)

	permRepo.On("ListActive", ctx).Return(flatPermissions(), nil)

	service := NewPermissionService(permRepo)

	// Act
	tree, err := service.GetTree(ctx, TreeTypeAll)

	// Assert
	require.NoError(t, err)
	require.Len(t, tree, 2)
	assert.Equal(t, "menu.customers", tree[0].Code)
	assert.Equal(t, "menu.shipments", tree[1].Code)

	// Кнопки лежат под своим меню в порядке sort_order
	require.Len(t, tree[0].Children, 2)
	assert.Equal(t, "btn.customers.create", tree[0].Children[0].Code)
	assert.Equal(t, "btn.customers.delete", tree[0].Children[1].Code)
	assert.Empty(t, tree[1].Children)
}

func TestPermissionService_GetTree_MenuOnly(t *testing.T) {
	// Arrange
	ctx := context.Background()
	permRepo := new(mocks.MockPermissionRepository)

	menus := flatPermissions()[:2]
	permRepo.On("ListActiveByType", ctx, entity.PermissionTypeMenu).Return(menus, nil)

	service := NewPermissionService(permRepo)

	// Act
	tree, err := service.GetTree(ctx, TreeTypeMenu)

	// Assert
	require.NoError(t, err)
	require.Len(t, tree, 2)
	assert.Empty(t, tree[0].Children)
}

func TestPermissionService_GetTree_ButtonOnly(t *testing.T) {
	// Arrange - в выборке только кнопки, их родители-меню отсутствуют;
	// лес не должен потерять ни одной кнопки
	ctx := context.Background()
	permRepo := new(mocks.MockPermissionRepository)

	buttons := flatPermissions()[2:]
	permRepo.On("ListActiveByType", ctx, entity.PermissionTypeButton).Return(buttons, nil)

	service := NewPermissionService(permRepo)

	// Act
	tree, err := service.GetTree(ctx, TreeTypeButton)

	// Assert
	require.NoError(t, err)
	require.Len(t, tree, 2)
	assert.Equal(t, "btn.customers.create", tree[0].Code)
	assert.Equal(t, "btn.customers.delete", tree[1].Code)
	assert.Empty(t, tree[0].Children)
	assert.Empty(t, tree[1].Children)
}

// ==================== BuildTree Tests ====================

func TestBuildTree_OrphanExcluded(t *testing.T) {
	// Arrange - узел с несуществующим родителем не попадает в лес
	perms := []entity.Permission{
		{ID: 1, Code: "menu.customers", ParentID: 0},
		{ID: 5, Code: "btn.orphan", ParentID: 77},
	}

	// Act
	tree := BuildTree(perms)

	// Assert
	require.Len(t, tree, 1)
	assert.Equal(t, "menu.customers", tree[0].Code)
}

func TestBuildTree_DepthBound(t *testing.T) {
	// Arrange - цепочка глубже лимита; испорченные данные не должны
	// уронить сервис, лишние уровни обрезаются
	perms := make([]entity.Permission, 0, 32)
	for i := int64(1); i <= 32; i++ {
		perms = append(perms, entity.Permission{ID: i, ParentID: i - 1})
	}

	// Act
	tree := BuildTree(perms)

	// Assert
	depth := 0
	for node := tree[0]; node != nil; {
		depth++
		if len(node.Children) == 0 {
			node = nil
		} else {
			node = node.Children[0]
		}
	}
	assert.Equal(t, 16, depth)
}

func TestBuildDetachedForest_MissingParentsBecomeRoots(t *testing.T) {
	// Arrange - смесь: узел с родителем вне списка, обычный корень и
	// узел, чей родитель в списке есть
	perms := []entity.Permission{
		{ID: 3, Code: "btn.customers.create", ParentID: 1},
		{ID: 4, Code: "btn.customers.delete", ParentID: 1},
		{ID: 7, Code: "menu.reports", ParentID: 0},
		{ID: 8, Code: "btn.reports.export", ParentID: 7},
	}

	// Act
	forest := BuildDetachedForest(perms)

	// Assert - каждый входной узел присутствует ровно один раз
	require.Len(t, forest, 3)
	assert.Equal(t, "btn.customers.create", forest[0].Code)
	assert.Equal(t, "btn.customers.delete", forest[1].Code)
	assert.Equal(t, "menu.reports", forest[2].Code)
	require.Len(t, forest[2].Children, 1)
	assert.Equal(t, "btn.reports.export", forest[2].Children[0].Code)
}

func TestBuildTree_Empty(t *testing.T) {
	// Act
	tree := BuildTree(nil)

	// Assert
	assert.NotNil(t, tree)
	assert.Empty(t, tree)
}
