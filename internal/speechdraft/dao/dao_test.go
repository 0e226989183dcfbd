package dao

import (
	"errors"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/speechdraft/speechdraft/internal/speechdraft/editor"
	"github.com/speechdraft/speechdraft/internal/speechdraft/editor/tiptap"
	"github.com/speechdraft/speechdraft/internal/speechdraft/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, Migrate(db))
	return db
}

func createUser(t *testing.T, db *gorm.DB, email string) *User {
	t.Helper()
	u := &User{ID: GenID(), Email: email, FirstName: "Test", IsActive: true}
	require.NoError(t, db.Create(u).Error)
	return u
}

func createProject(t *testing.T, db *gorm.DB, owner *User) *Project {
	t.Helper()
	p := &Project{Title: "Anna & Ben", Occasion: OccasionWedding, HonoreeName: "Anna"}
	require.NoError(t, CreateProject(db, p, owner))
	return p
}

func TestPasswordHash(t *testing.T) {
	hash := GenPasswordHash("password123")
	assert.True(t, strings.HasPrefix(hash, "pbkdf2_sha256$260000$"))
	assert.True(t, CheckPassword("password123", hash))
	assert.False(t, CheckPassword("password124", hash))
	assert.False(t, CheckPassword("password123", "broken"))
}

func TestGenToken(t *testing.T) {
	a, err := GenToken()
	require.NoError(t, err)
	b, err := GenToken()
	require.NoError(t, err)
	assert.Len(t, a, 43)
	assert.NotEqual(t, a, b)
	assert.Regexp(t, `^[a-zA-Z0-9]+$`, a)
	assert.Equal(t, url.PathEscape(a), a)
}

func TestCreateProject(t *testing.T) {
	db := newTestDB(t)
	owner := createUser(t, db, "owner@example.com")
	p := createProject(t, db, owner)

	member, err := GetProjectMember(db, p.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, RoleOwner, member.Role)
	assert.Equal(t, p.Title, member.Project.Title)

	speech, err := GetSpeech(db, p.ID)
	require.NoError(t, err)
	assert.Nil(t, speech.Content.Doc)
	assert.Equal(t, 1, speech.Version)

	projects, err := GetUserProjects(db, owner.ID)
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, RoleOwner, projects[0].CurrentUserRole)
}

func TestAddProjectMember(t *testing.T) {
	db := newTestDB(t)
	owner := createUser(t, db, "owner@example.com")
	guest := createUser(t, db, "guest@example.com")
	p := createProject(t, db, owner)

	m, err := AddProjectMember(db, p.ID, guest.ID, RoleContributor)
	require.NoError(t, err)
	assert.Equal(t, RoleContributor, m.Role)

	m, err = AddProjectMember(db, p.ID, guest.ID, RoleEditor)
	assert.ErrorIs(t, err, ErrAlreadyMember)
	assert.Equal(t, RoleEditor, m.Role)

	// Роль не понижается
	_, err = AddProjectMember(db, p.ID, guest.ID, RoleContributor)
	assert.ErrorIs(t, err, ErrAlreadyMember)
	stored, err := GetProjectMember(db, p.ID, guest.ID)
	require.NoError(t, err)
	assert.Equal(t, RoleEditor, stored.Role)

	members, err := GetProjectMembers(db, p.ID)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, owner.ID, members[0].MemberID)
	assert.Equal(t, "guest@example.com", members[1].Member.Email)
}

func TestSpeechLegacyContentNormalizedOnLoad(t *testing.T) {
	db := newTestDB(t)
	owner := createUser(t, db, "owner@example.com")
	p := createProject(t, db, owner)

	legacy := `{"root":{"type":"root","children":[{"type":"paragraph","children":[{"type":"text","text":"Hello","format":1}]}]}}`
	require.NoError(t, db.Exec("UPDATE speeches SET content = ? WHERE project_id = ?", legacy, p.ID).Error)

	speech, err := GetSpeech(db, p.ID)
	require.NoError(t, err)
	require.NotNil(t, speech.Content.Doc)
	assert.Equal(t, editor.FormatLexical, speech.Content.SourceFormat)
	assert.Equal(t, "Hello", tiptap.PlainText(speech.Content.Doc))
	assert.True(t, speech.Content.Doc.Content[0].Content[0].HasMark(tiptap.MarkBold))
}

func TestSaveSpeechVersion(t *testing.T) {
	db := newTestDB(t)
	owner := createUser(t, db, "owner@example.com")
	p := createProject(t, db, owner)

	saved, err := SaveSpeech(db, p.ID, 1, tiptap.TextDocument("Draft one"), owner.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, saved.Version)
	assert.Equal(t, editor.FormatTipTap, saved.Content.SourceFormat)
	assert.Equal(t, "Draft one", tiptap.PlainText(saved.Content.Doc))
	require.NotNil(t, saved.UpdatedBy)
	assert.Equal(t, owner.ID, saved.UpdatedBy.ID)

	current, err := SaveSpeech(db, p.ID, 1, tiptap.TextDocument("Stale"), owner.ID)
	assert.ErrorIs(t, err, ErrVersionConflict)
	assert.Equal(t, 2, current.Version)
	assert.Equal(t, "Draft one", tiptap.PlainText(current.Content.Doc))
}

func TestMagicLinkConsume(t *testing.T) {
	db := newTestDB(t)
	owner := createUser(t, db, "owner@example.com")
	p := createProject(t, db, owner)

	token, err := GenToken()
	require.NoError(t, err)
	link := MagicLink{ID: GenID(), ProjectID: p.ID, Token: token, Role: RoleContributor, MaxUses: 3, CreatedByID: owner.ID}
	require.NoError(t, db.Create(&link).Error)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var ok, exhausted int
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ConsumeMagicLink(db, token)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, ErrMagicLinkExhausted):
				exhausted++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, ok)
	assert.Equal(t, 5, exhausted)

	stored, err := GetMagicLinkByToken(db, token)
	require.NoError(t, err)
	assert.Equal(t, 3, stored.UseCount)
}

func TestMagicLinkCheck(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	tests := []struct {
		name string
		link MagicLink
		want error
	}{
		{"unlimited", MagicLink{UseCount: 100}, nil},
		{"valid", MagicLink{ExpiresAt: &future, MaxUses: 2, UseCount: 1}, nil},
		{"revoked", MagicLink{Revoked: true}, ErrMagicLinkRevoked},
		{"expired", MagicLink{ExpiresAt: &past}, ErrMagicLinkExpired},
		{"exhausted", MagicLink{MaxUses: 2, UseCount: 2}, ErrMagicLinkExhausted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.link.Check(now))
		})
	}
}

func TestRevokeMagicLink(t *testing.T) {
	db := newTestDB(t)
	owner := createUser(t, db, "owner@example.com")
	p := createProject(t, db, owner)

	link := MagicLink{ID: GenID(), ProjectID: p.ID, Token: "tok", Role: RoleContributor, CreatedByID: owner.ID}
	require.NoError(t, db.Create(&link).Error)

	require.NoError(t, RevokeMagicLink(db, p.ID, link.ID))
	_, err := ConsumeMagicLink(db, "tok")
	assert.ErrorIs(t, err, ErrMagicLinkRevoked)

	assert.ErrorIs(t, RevokeMagicLink(db, "other", link.ID), gorm.ErrRecordNotFound)
}

func TestAcceptInvitation(t *testing.T) {
	db := newTestDB(t)
	owner := createUser(t, db, "owner@example.com")
	guest := createUser(t, db, "guest@example.com")
	p := createProject(t, db, owner)

	inv := Invitation{ID: GenID(), ProjectID: p.ID, Email: guest.Email, Role: RoleEditor, Token: "inv", CreatedByID: owner.ID, ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, db.Create(&inv).Error)

	member, err := AcceptInvitation(db, &inv, guest)
	require.NoError(t, err)
	assert.Equal(t, RoleEditor, member.Role)
	assert.NotNil(t, inv.AcceptedAt)

	_, err = AcceptInvitation(db, &inv, guest)
	assert.ErrorIs(t, err, ErrInvitationAccepted)
}

func TestPurgeExpiredAccess(t *testing.T) {
	db := newTestDB(t)
	owner := createUser(t, db, "owner@example.com")
	p := createProject(t, db, owner)

	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)
	accepted := past

	require.NoError(t, db.Create(&[]MagicLink{
		{ID: GenID(), ProjectID: p.ID, Token: "a", ExpiresAt: &past, CreatedByID: owner.ID},
		{ID: GenID(), ProjectID: p.ID, Token: "b", ExpiresAt: &future, CreatedByID: owner.ID},
		{ID: GenID(), ProjectID: p.ID, Token: "c", CreatedByID: owner.ID},
	}).Error)
	require.NoError(t, db.Create(&[]Invitation{
		{ID: GenID(), ProjectID: p.ID, Email: "x@example.com", Token: "i1", ExpiresAt: past, CreatedByID: owner.ID},
		{ID: GenID(), ProjectID: p.ID, Email: "y@example.com", Token: "i2", ExpiresAt: past, AcceptedAt: &accepted, CreatedByID: owner.ID},
		{ID: GenID(), ProjectID: p.ID, Email: "z@example.com", Token: "i3", ExpiresAt: future, CreatedByID: owner.ID},
	}).Error)

	links, invitations, err := PurgeExpiredAccess(db, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), links)
	assert.Equal(t, int64(1), invitations)
}

func TestQuestionnaires(t *testing.T) {
	db := newTestDB(t)
	owner := createUser(t, db, "owner@example.com")
	p := createProject(t, db, owner)

	q := Questionnaire{ID: GenID(), ProjectID: p.ID, Title: "Stories", Questions: types.StringList{"How did you meet?", "Best memory?"}, CreatedByID: owner.ID}
	require.NoError(t, db.Create(&q).Error)
	require.NoError(t, db.Create(&QuestionnaireAnswer{ID: GenID(), QuestionnaireID: q.ID, AuthorName: "Aunt May", Answers: types.StringList{"At school", "The trip"}}).Error)

	list, err := GetQuestionnaires(db, p.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 1, list[0].AnswersCount)
	assert.Equal(t, types.StringList{"How did you meet?", "Best memory?"}, list[0].Questions)

	answers, err := GetQuestionnaireAnswers(db, q.ID)
	require.NoError(t, err)
	require.Len(t, answers, 1)
	assert.Equal(t, "The trip", answers[0].Answers[1])
}

func TestDateVotingAndVenue(t *testing.T) {
	db := newTestDB(t)
	owner := createUser(t, db, "owner@example.com")
	guest := createUser(t, db, "guest@example.com")
	p := createProject(t, db, owner)

	d1, _ := types.ParseDate("2026-06-13")
	d2, _ := types.ParseDate("2026-06-20")
	opt1 := DateOption{ID: GenID(), ProjectID: p.ID, Date: d2, CreatedByID: owner.ID}
	opt2 := DateOption{ID: GenID(), ProjectID: p.ID, Date: d1, CreatedByID: owner.ID}
	require.NoError(t, db.Create(&opt1).Error)
	require.NoError(t, db.Create(&opt2).Error)

	require.NoError(t, db.Create(&DateVote{ID: GenID(), DateOptionID: opt1.ID, VoterID: owner.ID}).Error)
	require.NoError(t, db.Create(&DateVote{ID: GenID(), DateOptionID: opt1.ID, VoterID: guest.ID}).Error)
	assert.Error(t, db.Create(&DateVote{ID: GenID(), DateOptionID: opt1.ID, VoterID: guest.ID}).Error)

	options, err := GetDateOptions(db, p.ID)
	require.NoError(t, err)
	require.Len(t, options, 2)
	assert.Equal(t, "2026-06-13", options[0].Date.String())
	assert.Equal(t, 2, options[1].VoteCount)

	require.NoError(t, Unvote(db, opt1.ID, guest.ID))
	assert.ErrorIs(t, Unvote(db, opt1.ID, guest.ID), gorm.ErrRecordNotFound)

	require.NoError(t, SelectEventDate(db, p, &opt1))
	venue := Venue{ID: GenID(), ProjectID: p.ID, Name: "Old Mill", CreatedByID: owner.ID}
	require.NoError(t, db.Create(&venue).Error)
	require.NoError(t, SelectVenue(db, p, &venue))

	var stored Project
	require.NoError(t, db.Preload("Venue").First(&stored, "id = ?", p.ID).Error)
	require.NotNil(t, stored.EventDate)
	assert.Equal(t, "2026-06-20", stored.EventDate.String())
	require.NotNil(t, stored.Venue)
	assert.Equal(t, "Old Mill", stored.Venue.Name)

	require.NoError(t, DeleteProject(db, p.ID))
	var count int64
	require.NoError(t, db.Model(&DateVote{}).Count(&count).Error)
	assert.Zero(t, count)
	require.NoError(t, db.Model(&Project{}).Count(&count).Error)
	assert.Zero(t, count)
}
