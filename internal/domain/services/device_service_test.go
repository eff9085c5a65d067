package services

import (
	"errors"
	"testing"

	"aquasense-http-service/internal/domain/models"
)

func TestDeviceLifecycle(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createUser(t, "admin", models.RoleAdmin)
	super := env.createUser(t, "root", models.RoleSuperAdmin)

	est := &models.Establishment{Name: "River Station", AdminID: &admin.ID}
	if err := env.devices.CreateEstablishment(est); err != nil {
		t.Fatalf("create establishment: %v", err)
	}

	name := "Inlet sensor"
	device, err := env.devices.CreateDevice(DeviceInput{DeviceID: " IN-1 ", Name: &name, EstablishmentID: &est.ID})
	if err != nil {
		t.Fatalf("create device: %v", err)
	}
	if device.DeviceID != "IN-1" || device.AdminID == nil || *device.AdminID != admin.ID {
		t.Fatalf("device should inherit the establishment admin, got %+v", device)
	}
	if _, err := env.devices.CreateDevice(DeviceInput{DeviceID: "IN-1"}); !errors.Is(err, ErrDeviceAlreadyExist) {
		t.Fatalf("expected ErrDeviceAlreadyExist, got %v", err)
	}
	if _, err := env.devices.CreateDevice(DeviceInput{DeviceID: "  "}); !errors.Is(err, ErrDeviceIDRequired) {
		t.Fatalf("expected ErrDeviceIDRequired, got %v", err)
	}

	location := "North bank"
	updated, err := env.devices.UpdateDevice("IN-1", DeviceInput{Location: &location})
	if err != nil || updated.Location != location {
		t.Fatalf("update device: %+v %v", updated, err)
	}

	mine, _ := env.devices.GetAllDevices(adminScope(admin))
	all, _ := env.devices.GetAllDevices(adminScope(super))
	if len(mine) != 1 || len(all) != 1 {
		t.Fatalf("unexpected device listing %d/%d", len(mine), len(all))
	}

	assigned, _ := env.devices.AssignedEstablishments(adminScope(admin))
	if len(assigned) != 1 || len(assigned[0].Devices) != 1 {
		t.Fatalf("unexpected assigned establishments %+v", assigned)
	}
	if n, _ := env.devices.CountEstablishments(); n != 1 {
		t.Fatalf("expected 1 establishment, got %d", n)
	}
}

func TestDeleteDeviceRevokesAccess(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createUser(t, "admin", models.RoleAdmin)
	user := env.createUser(t, "alice", models.RoleUser)
	env.createDevice(t, "GONE", admin)

	req, _ := env.access.SubmitRequest(SubmitInput{UserID: user.ID, DeviceID: "GONE"})
	env.access.Approve(adminScope(admin), req.ID, user.ID)

	if err := env.devices.DeleteDevice("GONE"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got := env.reloadUser(t, user.ID)
	if got.IsVerified || got.DeviceID != nil {
		t.Fatalf("access should be revoked, got %+v", got)
	}
	state, _, _ := env.access.Status(user.ID)
	if state != models.AdmissionNoDevice {
		t.Fatalf("expected no_device after revocation, got %s", state)
	}
	if err := env.devices.DeleteDevice("GONE"); !errors.Is(err, ErrDeviceNotFound) {
		t.Fatalf("expected ErrDeviceNotFound, got %v", err)
	}
}
