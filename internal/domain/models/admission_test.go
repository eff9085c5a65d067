package models

import (
	"errors"
	"testing"
)

func TestAdmissionTransitions(t *testing.T) {
	cases := []struct {
		from  AdmissionState
		event AdmissionEvent
		want  AdmissionState
		ok    bool
	}{
		{AdmissionNoDevice, EventSubmit, AdmissionPending, true},
		{AdmissionDeclined, EventSubmit, AdmissionPending, true},
		{AdmissionPending, EventSubmit, AdmissionPending, true},
		{AdmissionPending, EventApprove, AdmissionApproved, true},
		{AdmissionPending, EventDecline, AdmissionDeclined, true},
		{AdmissionApproved, EventReset, AdmissionNoDevice, true},
		{AdmissionPending, EventReset, AdmissionNoDevice, true},
		{AdmissionApproved, EventSubmit, AdmissionApproved, false},
		{AdmissionApproved, EventApprove, AdmissionApproved, false},
		{AdmissionApproved, EventDecline, AdmissionApproved, false},
		{AdmissionDeclined, EventApprove, AdmissionDeclined, false},
		{AdmissionNoDevice, EventApprove, AdmissionNoDevice, false},
	}

	for _, tc := range cases {
		got, err := tc.from.Next(tc.event)
		if tc.ok && err != nil {
			t.Errorf("%s --%s--> unexpected error: %v", tc.from, tc.event, err)
			continue
		}
		if !tc.ok && !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("%s --%s--> expected ErrInvalidTransition, got %v", tc.from, tc.event, err)
		}
		if got != tc.want {
			t.Errorf("%s --%s--> got %s, want %s", tc.from, tc.event, got, tc.want)
		}
	}
}

func TestDeriveAdmissionState(t *testing.T) {
	device := "12345"
	empty := ""

	if s := DeriveAdmissionState(&User{IsVerified: true, DeviceID: &device}, RequestApproved); s != AdmissionApproved {
		t.Fatalf("verified user with device should be approved, got %s", s)
	}
	// 已验证但没有设备不满足查看条件
	if s := DeriveAdmissionState(&User{IsVerified: true}, ""); s != AdmissionNoDevice {
		t.Fatalf("verified user without device should be no_device, got %s", s)
	}
	if s := DeriveAdmissionState(&User{IsVerified: true, DeviceID: &empty}, RequestPending); s != AdmissionPending {
		t.Fatalf("empty device id must not count as bound, got %s", s)
	}
	if s := DeriveAdmissionState(&User{DeviceID: &device}, RequestDeclined); s != AdmissionDeclined {
		t.Fatalf("expected declined, got %s", s)
	}
	if AdmissionApproved.ShowAccessModal() || !AdmissionPending.ShowAccessModal() {
		t.Fatalf("access modal visibility mismatch")
	}
}

func TestCanViewDeviceData(t *testing.T) {
	device := "A-1"
	var nilUser *User
	if nilUser.CanViewDeviceData() {
		t.Fatal("nil user cannot view data")
	}
	if (&User{IsVerified: false, DeviceID: &device}).CanViewDeviceData() {
		t.Fatal("unverified user cannot view data")
	}
	if !(&User{IsVerified: true, DeviceID: &device}).CanViewDeviceData() {
		t.Fatal("verified user with device can view data")
	}
}
