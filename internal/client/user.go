package client

import (
	"bytes"
	"encoding/json"
	"fmt"

	"aquasense-http-service/internal/domain/models"
)

// User 客户端看到的用户记录，以服务端返回为准
type User struct {
	ID              uint                `json:"id"`
	Username        string              `json:"username"`
	Email           string              `json:"email"`
	Role            models.Role         `json:"role"`
	IsVerified      bool                `json:"isVerified"`
	DeviceID        *string             `json:"deviceId"`
	EstablishmentID *uint               `json:"establishmentId"`
	AuthProvider    models.AuthProvider `json:"authProvider,omitempty"`
}

// wireUser 兼容旧接口的 device_id / establishment_id 字段
type wireUser struct {
	ID                    uint                `json:"id"`
	Username              string              `json:"username"`
	Email                 string              `json:"email"`
	Role                  models.Role         `json:"role"`
	IsVerified            json.RawMessage     `json:"isVerified"`
	DeviceID              *string             `json:"deviceId"`
	LegacyDeviceID        *string             `json:"device_id"`
	EstablishmentID       *uint               `json:"establishmentId"`
	LegacyEstablishmentID *uint               `json:"establishment_id"`
	AuthProvider          models.AuthProvider `json:"authProvider"`
}

// UnmarshalJSON isVerified 只接受 true/false/null，其他编码返回 ErrLegacyVerification
func (u *User) UnmarshalJSON(data []byte) error {
	var w wireUser
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	verified, err := decodeVerified(w.IsVerified)
	if err != nil {
		return err
	}

	*u = User{
		ID:              w.ID,
		Username:        w.Username,
		Email:           w.Email,
		Role:            w.Role,
		IsVerified:      verified,
		DeviceID:        w.DeviceID,
		EstablishmentID: w.EstablishmentID,
		AuthProvider:    w.AuthProvider,
	}
	if u.DeviceID == nil {
		u.DeviceID = w.LegacyDeviceID
	}
	if u.EstablishmentID == nil {
		u.EstablishmentID = w.LegacyEstablishmentID
	}
	return nil
}

func decodeVerified(raw json.RawMessage) (bool, error) {
	raw = bytes.TrimSpace(raw)
	switch string(raw) {
	case "", "null", "false":
		return false, nil
	case "true":
		return true, nil
	}
	return false, fmt.Errorf("%w: %s", ErrLegacyVerification, raw)
}

// CanViewDeviceData 已验证且绑定了设备
func (u *User) CanViewDeviceData() bool {
	return u != nil && u.IsVerified && u.DeviceID != nil && *u.DeviceID != ""
}

// DeviceIDValue 返回设备ID，未绑定时为空字符串
func (u *User) DeviceIDValue() string {
	if u == nil || u.DeviceID == nil {
		return ""
	}
	return *u.DeviceID
}
