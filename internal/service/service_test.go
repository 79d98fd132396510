package service

import (
	"errors"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"chatsync/internal/config"
	"chatsync/internal/models"
	"chatsync/internal/page"
	"chatsync/internal/store"
	"chatsync/internal/token"
)

func testConfig() config.Config {
	return config.Config{
		AccessSecret:          "test-access-secret",
		RefreshSecret:         "test-refresh-secret",
		AccessTokenTTLMinutes: 15,
		RefreshTokenTTLDays:   7,
	}
}

func testServices(t *testing.T) (*UserService, *RoomService, *MessageService) {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := gdb.AutoMigrate(&models.User{}, &models.Room{}, &models.Message{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	st := store.New(gdb)
	return NewUserService(st, testConfig()), NewRoomService(st), NewMessageService(st)
}

func wantCode(t *testing.T, err error, code Code) {
	t.Helper()
	var svcErr *Error
	if !errors.As(err, &svcErr) {
		t.Fatalf("error = %v, want coded %q", err, code)
	}
	if svcErr.Code != code {
		t.Fatalf("code = %q, want %q", svcErr.Code, code)
	}
}

func TestRegister(t *testing.T) {
	users, _, _ := testServices(t)

	user, err := users.Register("alice", "secret12")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if user.ID == 0 || user.Username != "alice" {
		t.Errorf("Register() = %+v", user)
	}
	if user.PasswordHash == "secret12" {
		t.Error("password stored in plain text")
	}

	_, err = users.Register("alice", "other-pass")
	wantCode(t, err, CodeDuplicate)

	_, err = users.Register("  ", "pass")
	wantCode(t, err, CodeInvalid)
	_, err = users.Register("bob", "")
	wantCode(t, err, CodeInvalid)
}

func TestLogin(t *testing.T) {
	users, _, _ := testServices(t)
	if _, err := users.Register("alice", "secret12"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	result, err := users.Login("alice", "secret12")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if result.Name != "alice" || result.Access == "" || result.Refresh == "" {
		t.Errorf("Login() = %+v", result)
	}
	if claims := token.Verify(result.Access, "test-access-secret"); claims == nil {
		t.Error("access token does not verify with access secret")
	}
	if claims := token.Verify(result.Refresh, "test-refresh-secret"); claims == nil {
		t.Error("refresh token does not verify with refresh secret")
	}

	// repeated wrong attempts all fail the same way, no lockout
	for i := 0; i < 3; i++ {
		_, err := users.Login("alice", "wrong")
		wantCode(t, err, CodeInvalid)
	}
	_, err = users.Login("nobody", "secret12")
	wantCode(t, err, CodeInvalid)
}

func TestRenew(t *testing.T) {
	users, _, _ := testServices(t)
	if _, err := users.Register("alice", "secret12"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	login, err := users.Login("alice", "secret12")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	access, err := users.RenewAccess(login.Refresh)
	if err != nil {
		t.Fatalf("RenewAccess() error = %v", err)
	}
	if access.Name != "alice" || access.Access == "" {
		t.Errorf("RenewAccess() = %+v", access)
	}

	pair, err := users.RenewRefresh(login.Refresh)
	if err != nil {
		t.Fatalf("RenewRefresh() error = %v", err)
	}
	if pair.Access == "" || pair.Refresh == "" {
		t.Errorf("RenewRefresh() = %+v", pair)
	}

	// an access token is not a refresh token
	_, err = users.RenewAccess(login.Access)
	wantCode(t, err, CodeInvalid)
	_, err = users.RenewRefresh("garbage")
	wantCode(t, err, CodeInvalid)
}

func TestUserUpdate(t *testing.T) {
	users, _, _ := testServices(t)
	alice, _ := users.Register("alice", "secret12")
	bob, _ := users.Register("bob", "secret12")

	// only the owner may update
	name := "mallory"
	err := users.Update(bob.ID, alice.ID, &name, nil)
	wantCode(t, err, CodeForbidden)

	// renaming onto an existing user is a duplicate
	bobName := "bob"
	err = users.Update(alice.ID, alice.ID, &bobName, nil)
	wantCode(t, err, CodeDuplicate)

	newName := "alice2"
	newPass := "next-secret"
	if err := users.Update(alice.ID, alice.ID, &newName, &newPass); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if _, err := users.Login("alice2", "next-secret"); err != nil {
		t.Errorf("login after update failed: %v", err)
	}

	err = users.Update(alice.ID, 9999, &newName, nil)
	wantCode(t, err, CodeNotFound)
}

func TestRoomLifecycle(t *testing.T) {
	users, rooms, _ := testServices(t)
	owner, _ := users.Register("owner", "secret12")
	other, _ := users.Register("other", "secret12")

	_, err := rooms.Create(owner.ID, "  ", "")
	wantCode(t, err, CodeInvalid)

	room, err := rooms.Create(owner.ID, "general", "talk here")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if room.OwnerID != owner.ID {
		t.Errorf("OwnerID = %d, want %d", room.OwnerID, owner.ID)
	}

	// non-owner mutations are forbidden regardless of input validity
	name := "hijacked"
	_, err = rooms.Update(other.ID, room.ID, &name, nil)
	wantCode(t, err, CodeForbidden)
	err = rooms.Delete(other.ID, room.ID)
	wantCode(t, err, CodeForbidden)

	// the room is still there after a forbidden delete
	listed, err := rooms.List(page.Last(30, 0))
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(listed) != 1 || listed[0].ID != room.ID {
		t.Fatalf("List() = %+v", listed)
	}

	updated, err := rooms.Update(owner.ID, room.ID, &name, nil)
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Name != "hijacked" {
		t.Errorf("Name = %q after update", updated.Name)
	}

	_, err = rooms.Update(owner.ID, 9999, &name, nil)
	wantCode(t, err, CodeNotFound)

	if err := rooms.Delete(owner.ID, room.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	err = rooms.Delete(owner.ID, room.ID)
	wantCode(t, err, CodeNotFound)
}

func TestMessageLifecycle(t *testing.T) {
	users, rooms, msgs := testServices(t)
	sender, _ := users.Register("sender", "secret12")
	other, _ := users.Register("other", "secret12")
	room, err := rooms.Create(sender.ID, "general", "")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	_, err = msgs.Post(sender.ID, room.ID, "  ")
	wantCode(t, err, CodeInvalid)
	_, err = msgs.Post(sender.ID, 9999, "hello")
	wantCode(t, err, CodeNotFound)

	msg, err := msgs.Post(sender.ID, room.ID, "hello")
	if err != nil {
		t.Fatalf("Post() error = %v", err)
	}
	if msg.Edited {
		t.Error("new message marked edited")
	}

	// only the sender may edit or delete
	_, err = msgs.Edit(other.ID, msg.ID, "tampered")
	wantCode(t, err, CodeForbidden)
	err = msgs.Delete(other.ID, msg.ID)
	wantCode(t, err, CodeForbidden)

	edited, err := msgs.Edit(sender.ID, msg.ID, "hello again")
	if err != nil {
		t.Fatalf("Edit() error = %v", err)
	}
	if !edited.Edited || edited.Content != "hello again" {
		t.Errorf("Edit() = %+v", edited)
	}
	if edited.ID != msg.ID {
		t.Error("edit must preserve the message id")
	}

	if err := msgs.Delete(sender.ID, msg.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	_, err = msgs.Edit(sender.ID, msg.ID, "ghost")
	wantCode(t, err, CodeNotFound)

	listed, err := msgs.List(room.ID, page.Last(30, 0))
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(listed) != 0 {
		t.Errorf("List() after delete = %+v", listed)
	}
}
