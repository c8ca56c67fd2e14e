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
	"orchardfleet/admin-service/internal/app/admin/util"

	"orchardfleet/pkg/logger"
	"orchardfleet/pkg/metrics"
)

// AuthService обрабатывает вход, выход, проверку токенов, подписанные
// запросы, привязку устройств и вычисление итоговых прав
type AuthService struct {
	userRepo     repository.UserRepository
	roleRepo     repository.RoleRepository
	sessionRepo  repository.SessionRepository
	tokenManager *util.TokenManager
	signer       *util.Signer
	obfuscator   *util.Obfuscator
	publisher    infrastructure.EventPublisher
	signWindow   time.Duration
}

func NewAuthService(
	userRepo repository.UserRepository,
	roleRepo repository.RoleRepository,
	sessionRepo repository.SessionRepository,
	tokenManager *util.TokenManager,
	signer *util.Signer,
	obfuscator *util.Obfuscator,
	publisher infrastructure.EventPublisher,
	signWindow time.Duration,
) *AuthService {
	return &AuthService{
		userRepo:     userRepo,
		roleRepo:     roleRepo,
		sessionRepo:  sessionRepo,
		tokenManager: tokenManager,
		signer:       signer,
		obfuscator:   obfuscator,
		publisher:    publisher,
		signWindow:   signWindow,
	}
}

// Login выполняет вход веб-администратора.
// Порядок проверок: окно свежести -> пользователь -> подпись -> nonce -> пароль.
// Nonce регистрируется только после успешной подписи, чтобы неудачная
// попытка не сжигала его.
func (s *AuthService) Login(ctx context.Context, req *entity.LoginRequest) (*entity.LoginResponse, error) {
	user, err := s.verifySignedLogin(ctx, req.Username, req.Timestamp, req.Nonce, req.Signature, map[string]interface{}{
		"username":  req.Username,
		"password":  req.Password,
		"timestamp": req.Timestamp,
		"nonce":     req.Nonce,
	})
	if err != nil {
		return nil, err
	}

	if err := s.checkPassword(ctx, user, req.Password, req.Username); err != nil {
		return nil, err
	}

	accessToken, err := s.tokenManager.GenerateAdminToken(user.ID, user.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	s.publishEvent(ctx, entity.EventLoginSuccess, user.ID, user.Username, "admin login")

	return s.loginResponse(ctx, user, accessToken, s.tokenManager.GetAdminDuration())
}

// MiniAppLogin выполняет вход полевого сотрудника из мини-приложения.
// Дополнительно к проверкам обычного входа: роль пользователя должна
// разрешать вход из мини-приложения, а устройство - совпадать с привязанным
// (первый вход привязывает устройство).
func (s *AuthService) MiniAppLogin(ctx context.Context, req *entity.MiniAppLoginRequest) (*entity.LoginResponse, error) {
	user, err := s.verifySignedLogin(ctx, req.Username, req.Timestamp, req.Nonce, req.Signature, map[string]interface{}{
		"username":  req.Username,
		"password":  req.Password,
		"device_id": req.DeviceID,
		"timestamp": req.Timestamp,
		"nonce":     req.Nonce,
	})
	if err != nil {
		return nil, err
	}

	if err := s.checkPassword(ctx, user, req.Password, req.Username); err != nil {
		return nil, err
	}

	roles, err := s.roleRepo.GetRolesByUserID(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user roles: %w", err)
	}

	allowed := false
	for _, role := range roles {
		if role.MiniAppLogin {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, ErrMiniAppLoginDisabled
	}

	if err := s.checkDeviceBinding(ctx, user, req.DeviceID); err != nil {
		return nil, err
	}

	accessToken, err := s.tokenManager.GenerateMiniAppToken(user.ID, user.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	s.publishEvent(ctx, entity.EventLoginSuccess, user.ID, user.Username, "miniapp login")

	return s.loginResponse(ctx, user, accessToken, s.tokenManager.GetMiniAppDuration())
}

// Logout отзывает текущий токен: jti попадает в черный список с TTL,
// равным остатку срока действия, так что запись истечет не позже токена
func (s *AuthService) Logout(ctx context.Context, accessToken string) error {
	claims, err := s.tokenManager.ValidateToken(accessToken)
	if err != nil {
		// Невалидный или истекший токен отзывать не нужно
		return nil
	}

	// Наш эмитент всегда ставит exp, но подпись сама по себе наличие
	// claim не гарантирует. Токен без exp блокируем на максимальный
	// выдаваемый срок.
	ttl := s.tokenManager.GetMiniAppDuration()
	if claims.ExpiresAt != nil {
		ttl = time.Until(claims.ExpiresAt.Time)
	}
	if err := s.sessionRepo.BlacklistToken(ctx, claims.ID, ttl); err != nil {
		return fmt.Errorf("failed to blacklist token: %w", err)
	}

	s.publishEvent(ctx, entity.EventLogout, claims.UserID, claims.Username, "")
	metrics.AuthTokensRevoked.Inc()

	return nil
}

// ValidateToken проверяет подпись и срок действия токена, затем черный
// список. Вызывающий код обязан выдавать наружу одинаковый Unauthorized
// для всех трех причин - конкретика остается в логах.
func (s *AuthService) ValidateToken(ctx context.Context, token string) (*util.TokenClaims, error) {
	claims, err := s.tokenManager.ValidateToken(token)
	if err != nil {
		if errors.Is(err, util.ErrExpiredToken) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	revoked, err := s.sessionRepo.IsTokenBlacklisted(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check blacklist: %w", err)
	}
	if revoked {
		return nil, ErrTokenRevoked
	}

	return claims, nil
}

// VerifySignedRequest проверяет подписанный запрос аутентифицированного
// пользователя: окно свежести, подпись, одноразовость nonce.
// Проверка и вставка nonce - одна атомарная операция хранилища.
func (s *AuthService) VerifySignedRequest(ctx context.Context, userID int64, params map[string]interface{}, timestamp int64, nonce, signature string) error {
	if err := s.checkFreshness(timestamp); err != nil {
		return err
	}

	if !s.signer.Verify(userID, params, signature) {
		metrics.SignatureRejections.WithLabelValues("signature_invalid").Inc()
		s.publishEvent(ctx, entity.EventSignatureReject, userID, "", "signature mismatch")
		return ErrSignatureInvalid
	}

	ok, err := s.sessionRepo.StoreNonce(ctx, nonce, s.signWindow)
	if err != nil {
		return fmt.Errorf("failed to check nonce: %w", err)
	}
	if !ok {
		metrics.SignatureRejections.WithLabelValues("nonce_replayed").Inc()
		s.publishEvent(ctx, entity.EventNonceReplay, userID, "", nonce)
		return ErrNonceReplayed
	}

	return nil
}

// GetEffectivePermissions вычисляет итоговые права принципала:
// объединение кодов разрешений, дерево меню и флаг суперадминистратора
func (s *AuthService) GetEffectivePermissions(ctx context.Context, userID int64) (*entity.EffectivePermissions, error) {
	roles, err := s.roleRepo.GetRolesByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user roles: %w", err)
	}

	isSuperAdmin := hasSuperAdminRole(roles)

	permissions, err := s.roleRepo.GetPermissionsByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user permissions: %w", err)
	}

	codes := make([]string, 0, len(permissions))
	menus := make([]entity.Permission, 0, len(permissions))
	for _, p := range permissions {
		codes = append(codes, p.Code)
		if p.Type == entity.PermissionTypeMenu {
			menus = append(menus, p)
		}
	}

	return &entity.EffectivePermissions{
		IsSuperAdmin:    isSuperAdmin,
		PermissionCodes: codes,
		Menus:           BuildTree(menus),
	}, nil
}

// Authorize проверяет один код разрешения и возвращает помеченный результат.
// Суперадминистратор обходит проверку принадлежности полностью - это
// отдельный путь выдачи, различимый по Reason. Проверка кнопочных прав
// носит рекомендательный характер: каждый защищенный эндпоинт обязан
// вызывать Authorize сам, на своей стороне.
func (s *AuthService) Authorize(ctx context.Context, userID int64, code string) (entity.Decision, error) {
	roles, err := s.roleRepo.GetRolesByUserID(ctx, userID)
	if err != nil {
		return entity.Decision{}, fmt.Errorf("failed to get user roles: %w", err)
	}

	if hasSuperAdminRole(roles) {
		return entity.Decision{Granted: true, Reason: entity.GrantReasonSuperAdmin}, nil
	}

	permissions, err := s.roleRepo.GetPermissionsByUserID(ctx, userID)
	if err != nil {
		return entity.Decision{}, fmt.Errorf("failed to get user permissions: %w", err)
	}

	for _, p := range permissions {
		if p.Code == code {
			return entity.Decision{Granted: true, Reason: entity.GrantReasonUnion}, nil
		}
	}

	metrics.PermissionDenied.Inc()
	return entity.Decision{Granted: false}, nil
}

// ResetDevice безусловно снимает привязку устройства - единственный путь
// назад к непривязанному состоянию. Уже выданные токены не отзываются.
func (s *AuthService) ResetDevice(ctx context.Context, userID int64) error {
	if _, err := s.getUser(ctx, userID); err != nil {
		return err
	}

	if err := s.userRepo.UpdateDeviceID(ctx, userID, nil); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to reset device binding: %w", err)
	}

	s.publishEvent(ctx, entity.EventDeviceReset, userID, "", "")
	return nil
}

// verifySignedLogin выполняет общую для обоих входов часть: свежесть,
// поиск пользователя, подпись ключом найденного пользователя, nonce.
// Ключ подписи выводится по id пользователя, поэтому поиск предшествует
// проверке подписи.
func (s *AuthService) verifySignedLogin(ctx context.Context, username string, timestamp int64, nonce, signature string, params map[string]interface{}) (*entity.User, error) {
	if err := s.checkFreshness(timestamp); err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			logger.Warn().Str("username", username).Msg("Login attempt for unknown user")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if user.Status != entity.StatusNormal {
		return nil, ErrInvalidCredentials
	}

	if !s.signer.Verify(user.ID, params, signature) {
		metrics.SignatureRejections.WithLabelValues("signature_invalid").Inc()
		s.publishEvent(ctx, entity.EventSignatureReject, user.ID, username, "login signature mismatch")
		return nil, ErrSignatureInvalid
	}

	ok, err := s.sessionRepo.StoreNonce(ctx, nonce, s.signWindow)
	if err != nil {
		return nil, fmt.Errorf("failed to check nonce: %w", err)
	}
	if !ok {
		metrics.SignatureRejections.WithLabelValues("nonce_replayed").Inc()
		s.publishEvent(ctx, entity.EventNonceReplay, user.ID, username, nonce)
		return nil, ErrNonceReplayed
	}

	return user, nil
}

// checkPassword разворачивает обфусцированный пароль и сверяет его с хэшем.
// Метка времени внутри обертки проверяется против того же окна свежести.
func (s *AuthService) checkPassword(ctx context.Context, user *entity.User, obfuscated, username string) error {
	payload, err := s.obfuscator.Decode(obfuscated)
	if err != nil {
		logger.Warn().Str("username", username).Msg("Malformed obfuscated credential payload")
		s.publishEvent(ctx, entity.EventLoginFailed, user.ID, username, "malformed credential payload")
		return ErrInvalidCredentials
	}

	if err := s.checkFreshness(payload.Timestamp); err != nil {
		return err
	}

	if !util.CheckPassword(payload.Value, user.PasswordHash) {
		s.publishEvent(ctx, entity.EventLoginFailed, user.ID, username, "wrong password")
		return ErrInvalidCredentials
	}

	return nil
}

// checkDeviceBinding реализует привязку "одно устройство на принципала":
// первый вход привязывает, дальше устройство обязано совпадать
func (s *AuthService) checkDeviceBinding(ctx context.Context, user *entity.User, deviceID string) error {
	if user.DeviceID == nil {
		if err := s.userRepo.UpdateDeviceID(ctx, user.ID, &deviceID); err != nil {
			return fmt.Errorf("failed to bind device: %w", err)
		}
		return nil
	}

	if *user.DeviceID != deviceID {
		metrics.DeviceMismatches.Inc()
		s.publishEvent(ctx, entity.EventDeviceMismatch, user.ID, user.Username, deviceID)
		return ErrDeviceMismatch
	}

	return nil
}

func (s *AuthService) checkFreshness(timestamp int64) error {
	now := time.Now().Unix()
	delta := now - timestamp
	if delta < 0 {
		delta = -delta
	}
	// Сравниваем в секундах: перевод delta в time.Duration переполняется
	// на экстремальных метках времени. Отрицательная delta после отражения
	// означает переполнение самой разницы - такая метка заведомо вне окна.
	if delta < 0 || delta > int64(s.signWindow/time.Second) {
		metrics.SignatureRejections.WithLabelValues("timestamp_out_of_window").Inc()
		return ErrTimestampOutOfWindow
	}
	return nil
}

func (s *AuthService) loginResponse(ctx context.Context, user *entity.User, token string, duration time.Duration) (*entity.LoginResponse, error) {
	roles, err := s.roleRepo.GetRolesByUserID(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user roles: %w", err)
	}

	roleCodes := make([]string, 0, len(roles))
	for _, role := range roles {
		roleCodes = append(roleCodes, role.Code)
	}

	return &entity.LoginResponse{
		AccessToken: token,
		ExpiresIn:   int64(duration.Seconds()),
		User: entity.UserSummary{
			ID:           user.ID,
			Username:     user.Username,
			Name:         user.Name,
			IsSuperAdmin: hasSuperAdminRole(roles),
			Roles:        roleCodes,
		},
	}, nil
}

func (s *AuthService) getUser(ctx context.Context, userID int64) (*entity.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func hasSuperAdminRole(roles []entity.Role) bool {
	for _, role := range roles {
		if role.Code == entity.RoleCodeSuperAdmin {
			return true
		}
	}
	return false
}

// publishEvent отправляет событие безопасности в аудит; сбой публикации
// не влияет на исход операции
func (s *AuthService) publishEvent(ctx context.Context, eventType string, userID int64, username, detail string) {
	if s.publisher == nil {
		return
	}

	event := entity.SecurityEvent{
		Type:       eventType,
		UserID:     userID,
		Username:   username,
		Detail:     detail,
		OccurredAt: time.Now(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return
	}

	if err := s.publisher.PublishMessage(ctx, eventType, payload); err != nil {
		logger.Warn().Err(err).Str("event_type", eventType).Msg("Failed to publish security event")
	}
}
