package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/erazemk/najdeno/internal/db"
	"github.com/erazemk/najdeno/internal/model"
)

func TestCreateAndGetUser(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	var created *model.User
	err := WithTx(ctx, database, func(tx *sql.Tx) error {
		var err error
		created, err = CreateUser(ctx, tx, "ana", "hash123", model.RoleModerator)
		return err
	})
	if err != nil {
		t.Fatalf("CreateUser in tx: %v", err)
	}

	got, err := GetUser(ctx, database, created.ID)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if got == nil || got.Username != "ana" || got.Role != model.RoleModerator || got.DeletedAt != nil {
		t.Errorf("GetUser = %+v", got)
	}

	if missing, err := GetUser(ctx, database, created.ID+100); err != nil || missing != nil {
		t.Errorf("GetUser(missing) = %+v, %v", missing, err)
	}
}

func TestGetUserByUsername(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	alice := mustUser(t, database, "alice", model.RoleAdmin)

	got, err := GetUserByUsername(ctx, database, "alice")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if got == nil || got.ID != alice.ID {
		t.Errorf("GetUserByUsername(alice) = %+v", got)
	}

	if missing, _ := GetUserByUsername(ctx, database, "bob"); missing != nil {
		t.Errorf("GetUserByUsername(bob) = %+v, want nil", missing)
	}
}

func TestDuplicateUsernameIsUniqueViolation(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	CreateUser(ctx, database, "alice", "hash", model.RoleUser)
	_, err := CreateUser(ctx, database, "alice", "hash", model.RoleUser)
	if err == nil {
		t.Fatal("expected duplicate username to fail")
	}
	if !IsUniqueViolation(err) {
		t.Errorf("expected unique violation, got %v", err)
	}
}

func TestListUserIDsByRole(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	admin := mustUser(t, database, "admin", model.RoleAdmin)
	mod := mustUser(t, database, "mod", model.RoleModerator)
	gone := mustUser(t, database, "gone", model.RoleModerator)
	mustUser(t, database, "user", model.RoleUser)
	DeleteUser(ctx, database, gone.ID)

	ids, err := ListUserIDsByRole(ctx, database, model.RoleAdmin, model.RoleModerator)
	if err != nil {
		t.Fatalf("ListUserIDsByRole: %v", err)
	}
	if len(ids) != 2 || ids[0] != admin.ID || ids[1] != mod.ID {
		t.Errorf("expected [%d %d], got %v", admin.ID, mod.ID, ids)
	}

	none, _ := ListUserIDsByRole(ctx, database)
	if len(none) != 0 {
		t.Errorf("expected no ids without roles, got %v", none)
	}
}

func TestDeleteUser(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	gone := mustUser(t, database, "gone", model.RoleUser)
	kept := mustUser(t, database, "kept", model.RoleUser)
	if err := DeleteUser(ctx, database, gone.ID); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}

	users, _ := ListUsers(ctx, database)
	if len(users) != 1 || users[0].ID != kept.ID {
		t.Errorf("ListUsers after delete = %+v", users)
	}

	// The row stays so claims and audit entries keep their user.
	got, _ := GetUser(ctx, database, gone.ID)
	if got == nil || got.DeletedAt == nil {
		t.Errorf("deleted user = %+v, want soft-deleted row", got)
	}
}

func TestUpdateUser(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	u := mustUser(t, database, "pwuser", model.RoleUser)
	if err := UpdateUserPassword(ctx, database, u.ID, "newhash"); err != nil {
		t.Fatalf("UpdateUserPassword: %v", err)
	}
	if err := UpdateUser(ctx, database, u.ID, model.RoleModerator); err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}

	got, _ := GetUser(ctx, database, u.ID)
	if got.PasswordHash != "newhash" || got.Role != model.RoleModerator {
		t.Errorf("updated user = %+v", got)
	}
}
