package services

import (
	"errors"
	"testing"

	"aquasense-http-service/internal/domain/models"
)

func TestRegisterNotifiesAdmins(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createUser(t, "admin", models.RoleAdmin)

	user, err := env.users.Register(RegisterInput{Username: "bob", Email: " Bob@Example.com ", Password: "secret1", Role: models.RoleSuperAdmin})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Role != models.RoleUser {
		t.Fatalf("public registration always creates a User, got %s", user.Role)
	}
	if user.Email != "bob@example.com" || user.IsVerified || user.DeviceID != nil {
		t.Fatalf("unexpected new user %+v", user)
	}

	list, _ := env.notifications.List(adminScope(admin), string(models.NotificationNewUser))
	if len(list) != 1 || list[0].FromUserID == nil || *list[0].FromUserID != user.ID {
		t.Fatalf("expected a new_user notification, got %+v", list)
	}

	if _, err := env.users.Register(RegisterInput{Username: "bob2", Email: "bob@example.com", Password: "secret1"}); !errors.Is(err, ErrUserAlreadyExist) {
		t.Fatalf("expected ErrUserAlreadyExist, got %v", err)
	}
	if _, err := env.users.Register(RegisterInput{Username: "x", Email: "x@example.com", Password: "123"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for a short password, got %v", err)
	}
}

func TestProfileAndPassword(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "alice", models.RoleUser)
	est := &models.Establishment{Name: "North Plant"}
	if err := env.devices.CreateEstablishment(est); err != nil {
		t.Fatalf("create establishment: %v", err)
	}

	name := "Alice W"
	updated, err := env.users.UpdateProfile(user.ID, ProfileInput{Username: &name, EstablishmentID: &est.ID})
	if err != nil {
		t.Fatalf("update profile: %v", err)
	}
	if updated.Username != name || updated.EstablishmentID == nil || *updated.EstablishmentID != est.ID {
		t.Fatalf("unexpected profile %+v", updated)
	}
	missing := uint(999)
	if _, err := env.users.UpdateProfile(user.ID, ProfileInput{EstablishmentID: &missing}); !errors.Is(err, ErrEstablishmentNotFound) {
		t.Fatalf("expected ErrEstablishmentNotFound, got %v", err)
	}

	if err := env.users.ChangePassword(user.ID, "wrong", "newpassword"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if err := env.users.ChangePassword(user.ID, "password123", "newpassword"); err != nil {
		t.Fatalf("change password: %v", err)
	}
	if _, err := env.jwt.Login(user.Email, "newpassword"); err != nil {
		t.Fatalf("login with new password: %v", err)
	}

	if err := env.users.ResetPassword(user.Email, "resetpass"); err != nil {
		t.Fatalf("reset password: %v", err)
	}
	if _, err := env.jwt.Login("Alice W", "resetpass"); err != nil {
		t.Fatalf("login by username after reset: %v", err)
	}
}

func TestCountUsersByDeviceAndListing(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createUser(t, "admin", models.RoleAdmin)
	for _, name := range []string{"tank1", "tank2", "tank3"} {
		u := env.createUser(t, name, models.RoleUser)
		req, err := env.access.SubmitRequest(SubmitInput{UserID: u.ID, DeviceID: "SHARED"})
		if err != nil {
			t.Fatalf("submit: %v", err)
		}
		if name != "tank3" {
			env.access.Approve(adminScope(admin), req.ID, u.ID)
		}
	}

	count, err := env.users.CountUsersByDevice("SHARED")
	if err != nil || count != 2 {
		t.Fatalf("expected 2 verified users, got %d %v", count, err)
	}

	users, total, err := env.users.GetAllUsers(models.PaginationQuery{PageNum: 1, PageSize: 2, Search: "tank"})
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	if total != 3 || len(users) != 2 {
		t.Fatalf("expected page of 2 out of 3, got %d/%d", len(users), total)
	}
}

func TestEnsureSuperAdminIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	for i := 0; i < 2; i++ {
		if err := env.users.EnsureSuperAdmin(); err != nil {
			t.Fatalf("ensure super admin: %v", err)
		}
	}
	var count int64
	env.db.Model(&models.User{}).Where("role = ?", models.RoleSuperAdmin).Count(&count)
	if count != 1 {
		t.Fatalf("expected exactly one super admin, got %d", count)
	}
	if _, err := env.jwt.Login(env.cfg.DefaultSuperAdminEmail, env.cfg.DefaultSuperAdminPassword); err != nil {
		t.Fatalf("default super admin should be able to log in: %v", err)
	}
}
