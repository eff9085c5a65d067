package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"aquasense-http-service/internal/domain/models"
	"aquasense-http-service/internal/infrastructure/config"
	"aquasense-http-service/internal/infrastructure/mailer"
	"aquasense-http-service/internal/infrastructure/metrics"
	"aquasense-http-service/internal/infrastructure/mqtt"
	Logger "aquasense-http-service/pkg/logger"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SubmitInput 提交设备访问申请
type SubmitInput struct {
	UserID   uint
	DeviceID string
}

// DecisionResult 审批结果
type DecisionResult struct {
	Request *models.Notification `json:"request"`
	User    *models.User         `json:"user"`
}

// AccessEvent 审批结果事件，发布到 access/<userID>
type AccessEvent struct {
	RequestID  uint                 `json:"requestId"`
	UserID     uint                 `json:"userId"`
	DeviceID   string               `json:"deviceId"`
	Status     models.RequestStatus `json:"status"`
	IsVerified bool                 `json:"isVerified"`
}

// InterfaceAccessService 设备访问申请状态机
type InterfaceAccessService interface {
	SubmitRequest(input SubmitInput) (*models.Notification, error)
	Approve(scope Scope, requestID, userID uint) (*DecisionResult, error)
	Decline(scope Scope, requestID, userID uint) (*DecisionResult, error)
	GetRequest(scope Scope, requestID uint) (*models.Notification, error)
	ListRequests(scope Scope, status models.RequestStatus) ([]models.Notification, error)
	Status(userID uint) (models.AdmissionState, *models.Notification, error)
}

// AccessService 处理设备访问申请的提交与审批
type AccessService struct {
	DB            *gorm.DB
	Config        *config.Config
	Notifications InterfaceNotificationService
	Bus           mqtt.Bus
	Mailer        mailer.Mailer
	Metrics       *metrics.Metrics
}

// NewAccessService 创建访问申请服务
func NewAccessService(db *gorm.DB, cfg *config.Config, notifications InterfaceNotificationService, bus mqtt.Bus, m mailer.Mailer, mt *metrics.Metrics) InterfaceAccessService {
	return &AccessService{
		DB:            db,
		Config:        cfg,
		Notifications: notifications,
		Bus:           bus,
		Mailer:        m,
		Metrics:       mt,
	}
}

// currentRequest 决定用户准入状态的申请：有待审批的申请时取最近的待审批申请，
// 否则取最近一次申请
func currentRequest(tx *gorm.DB, userID uint) (*models.Notification, error) {
	requests := tx.Model(&models.Notification{}).
		Where("type = ? AND from_user_id = ?", models.NotificationRequest, userID)

	var n models.Notification
	err := requests.Session(&gorm.Session{}).
		Where("status = ?", models.RequestPending).
		Order("id DESC").
		First(&n).Error
	if err == nil {
		return &n, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	n = models.Notification{}
	err = requests.Session(&gorm.Session{}).Order("id DESC").First(&n).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func requestStatus(n *models.Notification) models.RequestStatus {
	if n == nil {
		return ""
	}
	return n.Status
}

// 1 SubmitRequest 提交设备访问申请，生成发给设备管理员的待审批通知。
// 不修改用户的验证状态；同一用户对同一设备只能有一个待审批申请
func (s *AccessService) SubmitRequest(input SubmitInput) (*models.Notification, error) {
	deviceID := strings.TrimSpace(input.DeviceID)
	if deviceID == "" {
		s.countRequest("invalid")
		return nil, ErrDeviceIDRequired
	}

	var request *models.Notification
	var device *models.Device
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, input.UserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		latest, err := currentRequest(tx, user.ID)
		if err != nil {
			return err
		}
		state := models.DeriveAdmissionState(&user, requestStatus(latest))
		if _, err := state.Next(models.EventSubmit); err != nil {
			return ErrAlreadyVerified
		}

		key := models.PendingRequestKey(user.ID, deviceID)
		var dup int64
		if err := tx.Model(&models.Notification{}).Where("pending_key = ?", key).Count(&dup).Error; err != nil {
			return err
		}
		if dup > 0 {
			return ErrDuplicatePending
		}

		var d models.Device
		switch err := tx.Where("device_id = ?", deviceID).First(&d).Error; {
		case err == nil:
			device = &d
		case errors.Is(err, gorm.ErrRecordNotFound):
			Logger.Warning("用户%d申请了未登记的设备%s，申请将发给所有管理员", user.ID, deviceID)
		default:
			return err
		}

		request = &models.Notification{
			Type:       models.NotificationRequest,
			Status:     models.RequestPending,
			Message:    fmt.Sprintf("%s requested access to device %s", user.Username, deviceID),
			Audience:   models.AudienceAdmin,
			FromUserID: &user.ID,
			FromUser:   user.Username,
			DeviceID:   &deviceID,
			PendingKey: &key,
			Metadata:   requestMetadata(&user, device),
		}
		if device != nil {
			request.RecipientID = device.AdminID
		}
		if err := s.Notifications.CreateTx(tx, request); err != nil {
			// 并发提交时由唯一索引兜底
			var again int64
			if tx.Model(&models.Notification{}).Where("pending_key = ?", key).Count(&again); again > 0 {
				return ErrDuplicatePending
			}
			return err
		}
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrDuplicatePending):
			s.countRequest("duplicate")
		case errors.Is(err, ErrAlreadyVerified):
			s.countRequest("already_verified")
		default:
			s.countRequest("error")
		}
		return nil, err
	}

	s.countRequest("created")
	s.Notifications.Published(request)
	s.notifyAdmin(request, device)
	return request, nil
}

func requestMetadata(user *models.User, device *models.Device) datatypes.JSON {
	meta := map[string]interface{}{
		"email":      user.Email,
		"registered": device != nil,
	}
	if device != nil {
		meta["deviceName"] = device.Name
		meta["establishmentId"] = device.EstablishmentID
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return nil
	}
	return datatypes.JSON(data)
}

// 2 Approve 批准申请：在同一事务中更新申请状态、用户的验证状态与设备，并通知用户
func (s *AccessService) Approve(scope Scope, requestID, userID uint) (*DecisionResult, error) {
	return s.decide(scope, requestID, userID, models.RequestApproved)
}

// 3 Decline 拒绝申请：用户的验证状态不变，用户可以重新提交
func (s *AccessService) Decline(scope Scope, requestID, userID uint) (*DecisionResult, error) {
	return s.decide(scope, requestID, userID, models.RequestDeclined)
}

func (s *AccessService) decide(scope Scope, requestID, userID uint, status models.RequestStatus) (*DecisionResult, error) {
	var result DecisionResult
	var userNotice *models.Notification

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var request models.Notification
		err := visible(tx.Model(&models.Notification{}), scope).
			Where("id = ? AND type = ?", requestID, models.NotificationRequest).
			First(&request).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAccessRequestNotFound
			}
			return err
		}
		if request.FromUserID == nil || *request.FromUserID != userID {
			return ErrUserMismatch
		}

		// 条件更新保证每个申请只被处理一次
		now := time.Now()
		updated := tx.Model(&models.Notification{}).
			Where("id = ? AND type = ? AND status = ?", request.ID, models.NotificationRequest, models.RequestPending).
			Updates(map[string]interface{}{
				"status":      status,
				"pending_key": nil,
				"decided_by":  scope.UserID,
				"decided_at":  now,
			})
		if updated.Error != nil {
			return updated.Error
		}
		if updated.RowsAffected == 0 {
			return ErrNotPending
		}

		deviceID := ""
		if request.DeviceID != nil {
			deviceID = *request.DeviceID
		}

		if status == models.RequestApproved {
			// 验证状态与设备在同一条语句中写入
			res := tx.Model(&models.User{}).
				Where("id = ?", userID).
				Updates(map[string]interface{}{"is_verified": true, "device_id": deviceID})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return ErrUserNotFound
			}
			userNotice = &models.Notification{
				Type:    models.NotificationSuccess,
				Message: fmt.Sprintf("Your access request for device %s has been approved", deviceID),
			}
		} else {
			userNotice = &models.Notification{
				Type:    models.NotificationWarning,
				Message: fmt.Sprintf("Your access request for device %s has been declined", deviceID),
			}
		}
		userNotice.Audience = models.AudienceUser
		userNotice.RecipientID = &userID
		userNotice.DeviceID = request.DeviceID
		userNotice.FromUserID = &scope.UserID
		if err := s.Notifications.CreateTx(tx, userNotice); err != nil {
			return err
		}

		var user models.User
		if err := tx.First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		if err := tx.First(&request, request.ID).Error; err != nil {
			return err
		}
		result.Request = &request
		result.User = &user
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotPending) {
			s.countDecision("conflict")
		}
		return nil, err
	}

	s.countDecision(string(status))
	s.Notifications.Published(userNotice)
	s.publishDecision(&result)
	s.emailDecision(&result)
	Logger.Info("管理员%d%s了访问申请%d (用户%d)", scope.UserID, status, requestID, userID)
	return &result, nil
}

// 4 GetRequest 获取可见的访问申请
func (s *AccessService) GetRequest(scope Scope, requestID uint) (*models.Notification, error) {
	var request models.Notification
	err := visible(s.DB.Model(&models.Notification{}), scope).
		Where("id = ? AND type = ?", requestID, models.NotificationRequest).
		First(&request).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccessRequestNotFound
		}
		return nil, err
	}
	return &request, nil
}

// 5 ListRequests 列出可见的访问申请，status 为空时返回全部
func (s *AccessService) ListRequests(scope Scope, status models.RequestStatus) ([]models.Notification, error) {
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}
	query := visible(s.DB.Model(&models.Notification{}), scope).Where("type = ?", models.NotificationRequest)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	var list []models.Notification
	if err := query.Order("created_at DESC, id DESC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// 6 Status 用户当前的准入状态及对应的申请，待审批的申请优先
func (s *AccessService) Status(userID uint) (models.AdmissionState, *models.Notification, error) {
	var user models.User
	if err := s.DB.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, ErrUserNotFound
		}
		return "", nil, err
	}
	latest, err := currentRequest(s.DB, userID)
	if err != nil {
		return "", nil, err
	}
	return models.DeriveAdmissionState(&user, requestStatus(latest)), latest, nil
}

func (s *AccessService) publishDecision(result *DecisionResult) {
	if s.Bus == nil {
		return
	}
	event := AccessEvent{
		RequestID:  result.Request.ID,
		UserID:     result.User.ID,
		Status:     result.Request.Status,
		IsVerified: result.User.IsVerified,
	}
	if result.Request.DeviceID != nil {
		event.DeviceID = *result.Request.DeviceID
	}
	if err := s.Bus.Publish(mqtt.AccessTopic(result.User.ID), event); err != nil {
		Logger.Warning("发布审批结果失败: %v", err)
		if s.Metrics != nil {
			s.Metrics.MQTTPublishErrors.Inc()
		}
	}
}

// 邮件发送失败只记录日志，不影响审批结果
func (s *AccessService) emailDecision(result *DecisionResult) {
	if s.Mailer == nil {
		return
	}
	deviceID := ""
	if result.Request.DeviceID != nil {
		deviceID = *result.Request.DeviceID
	}
	subject := "Device access request " + string(result.Request.Status)
	text := fmt.Sprintf("Hello %s,\n\nYour request to access device %s has been %s.\n",
		result.User.Username, deviceID, result.Request.Status)
	if err := s.Mailer.SendEmail(result.User.Email, subject, text); err != nil {
		Logger.Warning("发送审批结果邮件失败: %v", err)
		if s.Metrics != nil {
			s.Metrics.EmailFailures.Inc()
		}
	}
}

func (s *AccessService) notifyAdmin(request *models.Notification, device *models.Device) {
	if s.Mailer == nil || device == nil || device.AdminID == nil {
		return
	}
	var admin models.User
	if err := s.DB.First(&admin, *device.AdminID).Error; err != nil {
		Logger.Warning("查找设备%s的管理员失败: %v", device.DeviceID, err)
		return
	}
	if err := s.Mailer.SendEmail(admin.Email, "New device access request", request.Message); err != nil {
		Logger.Warning("发送访问申请邮件失败: %v", err)
		if s.Metrics != nil {
			s.Metrics.EmailFailures.Inc()
		}
	}
}

func (s *AccessService) countRequest(result string) {
	if s.Metrics != nil {
		s.Metrics.AccessRequests.WithLabelValues(result).Inc()
	}
}

func (s *AccessService) countDecision(outcome string) {
	if s.Metrics != nil {
		s.Metrics.AccessDecisions.WithLabelValues(outcome).Inc()
	}
}
