package models

import (
	"errors"
	"fmt"
)

// AdmissionState 用户设备访问的准入状态
type AdmissionState string

const (
	AdmissionNoDevice AdmissionState = "no_device"
	AdmissionPending  AdmissionState = "pending"
	AdmissionApproved AdmissionState = "approved"
	AdmissionDeclined AdmissionState = "declined"
)

// AdmissionEvent 驱动状态迁移的事件
type AdmissionEvent string

const (
	EventSubmit  AdmissionEvent = "submit"
	EventApprove AdmissionEvent = "approve"
	EventDecline AdmissionEvent = "decline"
	EventReset   AdmissionEvent = "reset"
)

var ErrInvalidTransition = errors.New("invalid admission transition")

// Valid 是否为已知状态
func (s AdmissionState) Valid() bool {
	switch s {
	case AdmissionNoDevice, AdmissionPending, AdmissionApproved, AdmissionDeclined:
		return true
	}
	return false
}

// Next 计算事件作用后的新状态。
// no_device/declined --submit--> pending
// pending --submit--> pending (另一个设备的申请)
// pending --approve--> approved, pending --decline--> declined
// 任意状态 --reset--> no_device
func (s AdmissionState) Next(e AdmissionEvent) (AdmissionState, error) {
	if e == EventReset {
		return AdmissionNoDevice, nil
	}
	switch s {
	case AdmissionNoDevice, AdmissionDeclined, "":
		if e == EventSubmit {
			return AdmissionPending, nil
		}
	case AdmissionPending:
		switch e {
		case EventSubmit:
			return AdmissionPending, nil
		case EventApprove:
			return AdmissionApproved, nil
		case EventDecline:
			return AdmissionDeclined, nil
		}
	}
	return s, fmt.Errorf("%w: %s --%s-->", ErrInvalidTransition, s, e)
}

// DeriveAdmissionState 根据用户记录和最近一次申请状态得出准入状态。
// latest 为空表示用户从未提交过申请
func DeriveAdmissionState(u *User, latest RequestStatus) AdmissionState {
	if u.CanViewDeviceData() {
		return AdmissionApproved
	}
	switch latest {
	case RequestPending:
		return AdmissionPending
	case RequestDeclined:
		return AdmissionDeclined
	}
	return AdmissionNoDevice
}

// ShowAccessModal 未获得访问权限时需要显示设备申请窗口
func (s AdmissionState) ShowAccessModal() bool {
	return s != AdmissionApproved
}
