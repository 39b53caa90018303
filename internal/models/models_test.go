package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	apperrors "github.com/charlesng35/studyhall/pkg/errors"
	appvalidator "github.com/charlesng35/studyhall/pkg/validator"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared&_foreign_keys=1"), &gorm.Config{})
	require.NoError(t, err, "failed to open test database")

	err = db.AutoMigrate(&User{}, &InvitationCode{}, &Post{}, &Reply{}, &AuditLog{})
	require.NoError(t, err, "failed to auto-migrate")

	return db
}

func TestRoleSetFlagsAreIndependent(t *testing.T) {
	var set RoleSet
	assert.Equal(t, 0, set.Count())
	assert.Empty(t, set.Names())

	set = set.With(RoleStudent, true).With(RoleStaff, true)
	assert.False(t, set.Has(RoleAdmin))
	assert.True(t, set.Has(RoleStudent))
	assert.True(t, set.Has(RoleStaff))
	assert.Equal(t, 2, set.Count())
	assert.Equal(t, "Student, Staff", set.String())

	all := RoleSetOf(RoleAdmin, RoleStudent, RoleStaff)
	assert.Equal(t, []string{"Admin", "Student", "Staff"}, all.Names())

	assert.Equal(t, all, all.With(Role("Guest"), true))
	assert.False(t, all.Has(Role("Guest")))
}

func TestParseRoleAndThread(t *testing.T) {
	role, ok := ParseRole(" student ")
	require.True(t, ok)
	assert.Equal(t, RoleStudent, role)
	assert.False(t, Role("student").Valid())
	_, ok = ParseRole("guest")
	assert.False(t, ok)

	thread, ok := ParseThread("problem sets")
	require.True(t, ok)
	assert.Equal(t, ThreadProblemSets, thread)
	assert.True(t, ThreadProblemSets.Valid())
	assert.False(t, Thread("Random").Valid())

	assert.True(t, IsAllThreads(""))
	assert.True(t, IsAllThreads("All Threads"))
	assert.False(t, IsAllThreads("General"))
}

func TestInvitationCodeExpiresAtBoundary(t *testing.T) {
	issued := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	code := InvitationCode{Code: "A1B2C3", ExpiresAt: issued.Add(15 * time.Minute)}

	assert.False(t, code.ExpiredAt(issued.Add(14*time.Minute)))
	assert.True(t, code.ExpiredAt(issued.Add(15*time.Minute)))
	assert.True(t, code.ExpiredAt(issued.Add(16*time.Minute)))
}

func TestUserRolesPersistAsFlagColumns(t *testing.T) {
	db := setupTestDB(t)

	user := User{Username: "carol", Password: "hash", Roles: RoleSetOf(RoleStudent, RoleStaff)}
	require.NoError(t, db.Create(&user).Error)

	var flags struct {
		AdminRole bool
		Role1     bool
		Role2     bool
	}
	require.NoError(t, db.Table("users").Select("admin_role, role1, role2").Where("username = ?", "carol").Scan(&flags).Error)
	assert.False(t, flags.AdminRole)
	assert.True(t, flags.Role1)
	assert.True(t, flags.Role2)
}

func TestReplyRequiresExistingPost(t *testing.T) {
	db := setupTestDB(t)

	reply := Reply{PostID: 42, AuthorUsername: "dave", Body: "orphan"}
	assert.Error(t, db.Create(&reply).Error)
}

func TestAuditLogBeforeCreateGeneratesID(t *testing.T) {
	var entry AuditLog
	require.NoError(t, entry.BeforeCreate(nil))
	assert.NotEmpty(t, entry.ID)
}

func TestValidateModelTags(t *testing.T) {
	assert.NoError(t, Validate(Post{AuthorUsername: "carol", Thread: ThreadGeneral}, "bad post"))
	assert.NoError(t, Validate(InvitationCode{Code: "ABCDEF", Email: "bob@example.com", Role: RoleStudent}, "bad invitation"))

	err := Validate(Post{Thread: "Random"}, "Post requires an author and a known thread.")
	require.True(t, apperrors.IsValidation(err))
	assert.Equal(t, "Post requires an author and a known thread.", apperrors.UserMessage(err))

	var failures appvalidator.FieldFailures
	require.ErrorAs(t, err, &failures)
	assert.Equal(t, []string{"author_username", "thread"}, failures.Fields())

	err = Validate(InvitationCode{Code: "ABCDEF", Email: "bob@example.com", Role: "Guest"}, "bad invitation")
	require.ErrorAs(t, err, &failures)
	assert.Equal(t, []string{"role"}, failures.Fields())
}

func TestProfileFieldValid(t *testing.T) {
	assert.True(t, FieldEmail.Valid())
	assert.False(t, ProfileField("password").Valid())
	assert.Equal(t, "Jo Smith", User{Username: "j", FirstName: "Joanna", PreferredFirstName: "Jo", LastName: "Smith"}.DisplayName())
	assert.Equal(t, "j", User{Username: "j"}.DisplayName())
}
