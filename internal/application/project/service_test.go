package project

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Eldan-star/ResearchCollab/internal/application/notification"
	"github.com/Eldan-star/ResearchCollab/internal/domain"
	"github.com/Eldan-star/ResearchCollab/internal/realtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockProjectStore struct{ mock.Mock }

func (m *mockProjectStore) Put(ctx context.Context, p *domain.Project) error {
	return m.Called(ctx, p).Error(0)
}
func (m *mockProjectStore) Get(ctx context.Context, projectID string) (*domain.Project, error) {
	args := m.Called(ctx, projectID)
	if p, _ := args.Get(0).(*domain.Project); p != nil {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockProjectStore) ListByLead(ctx context.Context, leadUserID string) ([]domain.Project, error) {
	args := m.Called(ctx, leadUserID)
	if ps, _ := args.Get(0).([]domain.Project); ps != nil {
		return ps, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockProjectStore) Update(ctx context.Context, projectID string, updates map[string]interface{}) error {
	return m.Called(ctx, projectID, updates).Error(0)
}
func (m *mockProjectStore) SoftDelete(ctx context.Context, projectID string) error {
	return m.Called(ctx, projectID).Error(0)
}

type mockApplicationStore struct{ mock.Mock }

func (m *mockApplicationStore) Put(ctx context.Context, a *domain.ProjectApplication) error {
	return m.Called(ctx, a).Error(0)
}
func (m *mockApplicationStore) Get(ctx context.Context, applicationID string) (*domain.ProjectApplication, error) {
	args := m.Called(ctx, applicationID)
	if a, _ := args.Get(0).(*domain.ProjectApplication); a != nil {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockApplicationStore) ListByProject(ctx context.Context, projectID string) ([]domain.ProjectApplication, error) {
	args := m.Called(ctx, projectID)
	if as, _ := args.Get(0).([]domain.ProjectApplication); as != nil {
		return as, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockApplicationStore) GetByProjectAndApplicant(ctx context.Context, projectID, applicantID string) (*domain.ProjectApplication, error) {
	args := m.Called(ctx, projectID, applicantID)
	if a, _ := args.Get(0).(*domain.ProjectApplication); a != nil {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockApplicationStore) UpdateStatus(ctx context.Context, applicationID, status string) error {
	return m.Called(ctx, applicationID, status).Error(0)
}

type mockMilestoneStore struct{ mock.Mock }

func (m *mockMilestoneStore) Put(ctx context.Context, ms *domain.Milestone) error {
	return m.Called(ctx, ms).Error(0)
}
func (m *mockMilestoneStore) Get(ctx context.Context, milestoneID string) (*domain.Milestone, error) {
	args := m.Called(ctx, milestoneID)
	if ms, _ := args.Get(0).(*domain.Milestone); ms != nil {
		return ms, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockMilestoneStore) ListByProject(ctx context.Context, projectID string) ([]domain.Milestone, error) {
	args := m.Called(ctx, projectID)
	if ms, _ := args.Get(0).([]domain.Milestone); ms != nil {
		return ms, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockMilestoneStore) UpdateStatus(ctx context.Context, milestoneID, status string) error {
	return m.Called(ctx, milestoneID, status).Error(0)
}

type mockMessageStore struct{ mock.Mock }

func (m *mockMessageStore) Put(ctx context.Context, msg *domain.ChatMessage) error {
	return m.Called(ctx, msg).Error(0)
}
func (m *mockMessageStore) ListByProject(ctx context.Context, projectID string, limit int32) ([]domain.ChatMessage, error) {
	args := m.Called(ctx, projectID, limit)
	if ms, _ := args.Get(0).([]domain.ChatMessage); ms != nil {
		return ms, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockNotifier struct{ mock.Mock }

func (m *mockNotifier) Create(ctx context.Context, req notification.CreateRequest) (*domain.Notification, error) {
	args := m.Called(ctx, req)
	if n, _ := args.Get(0).(*domain.Notification); n != nil {
		return n, args.Error(1)
	}
	return nil, args.Error(1)
}

// --- helpers ---

type testDeps struct {
	projects     *mockProjectStore
	applications *mockApplicationStore
	milestones   *mockMilestoneStore
	messages     *mockMessageStore
	notifier     *mockNotifier
	broker       *realtime.Broker
}

func newTestDeps() *testDeps {
	return &testDeps{
		projects:     &mockProjectStore{},
		applications: &mockApplicationStore{},
		milestones:   &mockMilestoneStore{},
		messages:     &mockMessageStore{},
		notifier:     &mockNotifier{},
		broker:       realtime.NewBroker(),
	}
}

func (d *testDeps) build() Service {
	return NewService(ServiceDeps{
		ProjectRepo:     d.projects,
		ApplicationRepo: d.applications,
		MilestoneRepo:   d.milestones,
		MessageRepo:     d.messages,
		Notifier:        d.notifier,
		Broker:          d.broker,
	})
}

func openProject() *domain.Project {
	return &domain.Project{
		ProjectID:  "p1",
		LeadUserID: "lead",
		Title:      "Genomics Pipeline",
		Status:     "open",
		Enable:     true,
	}
}

func acceptedApp(applicantID string) *domain.ProjectApplication {
	return &domain.ProjectApplication{
		ApplicationID: "app-1",
		ProjectID:     "p1",
		ApplicantID:   applicantID,
		Status:        domain.ApplicationAccepted,
	}
}

// --- project tests ---

func TestCreateProject_Success(t *testing.T) {
	d := newTestDeps()
	d.projects.On("Put", mock.Anything, mock.AnythingOfType("*domain.Project")).Return(nil)

	p, err := d.build().CreateProject(context.Background(), "lead", domain.CreateProjectRequest{
		Title:       "Genomics Pipeline",
		Description: "Sequence analysis for the wet lab",
	})

	require.NoError(t, err)
	assert.NotEmpty(t, p.ProjectID)
	assert.Equal(t, "open", p.Status)
	assert.Equal(t, "lead", p.LeadUserID)
}

func TestGetProject_SoftDeletedHidden(t *testing.T) {
	d := newTestDeps()
	p := openProject()
	p.Enable = false
	d.projects.On("Get", mock.Anything, "p1").Return(p, nil)

	_, err := d.build().GetProject(context.Background(), "p1")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestCloseProject_LeadOnly(t *testing.T) {
	d := newTestDeps()
	d.projects.On("Get", mock.Anything, "p1").Return(openProject(), nil)

	err := d.build().CloseProject(context.Background(), "intruder", "p1")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrForbidden))
	d.projects.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestListByLead_FiltersDeleted(t *testing.T) {
	d := newTestDeps()
	deleted := *openProject()
	deleted.ProjectID = "p2"
	deleted.Enable = false
	d.projects.On("ListByLead", mock.Anything, "lead").Return([]domain.Project{*openProject(), deleted}, nil)

	ps, err := d.build().ListByLead(context.Background(), "lead")

	require.NoError(t, err)
	require.Len(t, ps, 1)
	assert.Equal(t, "p1", ps[0].ProjectID)
}

// --- application tests ---

func TestSubmitApplication_NotifiesLead(t *testing.T) {
	d := newTestDeps()
	d.projects.On("Get", mock.Anything, "p1").Return(openProject(), nil)
	d.applications.On("GetByProjectAndApplicant", mock.Anything, "p1", "contrib").Return(nil, domain.ErrNotFound)
	d.applications.On("Put", mock.Anything, mock.AnythingOfType("*domain.ProjectApplication")).Return(nil)
	d.notifier.On("Create", mock.Anything, mock.MatchedBy(func(req notification.CreateRequest) bool {
		return req.UserID == "lead" && req.Type == domain.NotificationNewApplication
	})).Return(&domain.Notification{}, nil)

	a, err := d.build().SubmitApplication(context.Background(), "contrib", "p1", domain.ApplyRequest{CoverLetter: "I can help"})

	require.NoError(t, err)
	assert.Equal(t, domain.ApplicationPending, a.Status)
	d.notifier.AssertNumberOfCalls(t, "Create", 1)
}

func TestSubmitApplication_ClosedProject(t *testing.T) {
	d := newTestDeps()
	p := openProject()
	p.Status = "closed"
	d.projects.On("Get", mock.Anything, "p1").Return(p, nil)

	_, err := d.build().SubmitApplication(context.Background(), "contrib", "p1", domain.ApplyRequest{CoverLetter: "x"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConflict))
}

func TestSubmitApplication_SelfApplyRejected(t *testing.T) {
	d := newTestDeps()
	d.projects.On("Get", mock.Anything, "p1").Return(openProject(), nil)

	_, err := d.build().SubmitApplication(context.Background(), "lead", "p1", domain.ApplyRequest{CoverLetter: "x"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

func TestSubmitApplication_DuplicateRejected(t *testing.T) {
	d := newTestDeps()
	d.projects.On("Get", mock.Anything, "p1").Return(openProject(), nil)
	d.applications.On("GetByProjectAndApplicant", mock.Anything, "p1", "contrib").Return(acceptedApp("contrib"), nil)

	_, err := d.build().SubmitApplication(context.Background(), "contrib", "p1", domain.ApplyRequest{CoverLetter: "x"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConflict))
}

func TestUpdateApplicationStatus_AcceptNotifiesApplicant(t *testing.T) {
	d := newTestDeps()
	pending := acceptedApp("contrib")
	pending.Status = domain.ApplicationPending
	d.applications.On("Get", mock.Anything, "app-1").Return(pending, nil)
	d.projects.On("Get", mock.Anything, "p1").Return(openProject(), nil)
	d.applications.On("UpdateStatus", mock.Anything, "app-1", domain.ApplicationAccepted).Return(nil)
	d.notifier.On("Create", mock.Anything, mock.MatchedBy(func(req notification.CreateRequest) bool {
		return req.UserID == "contrib" && req.Type == domain.NotificationApplicationStatus
	})).Return(&domain.Notification{}, nil)

	err := d.build().UpdateApplicationStatus(context.Background(), "lead", "app-1", domain.ApplicationAccepted)

	require.NoError(t, err)
	d.notifier.AssertNumberOfCalls(t, "Create", 1)
}

func TestUpdateApplicationStatus_InvalidStatus(t *testing.T) {
	d := newTestDeps()

	err := d.build().UpdateApplicationStatus(context.Background(), "lead", "app-1", "pending")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

func TestUpdateApplicationStatus_NonLeadForbidden(t *testing.T) {
	d := newTestDeps()
	pending := acceptedApp("contrib")
	pending.Status = domain.ApplicationPending
	d.applications.On("Get", mock.Anything, "app-1").Return(pending, nil)
	d.projects.On("Get", mock.Anything, "p1").Return(openProject(), nil)

	err := d.build().UpdateApplicationStatus(context.Background(), "contrib", "app-1", domain.ApplicationAccepted)

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrForbidden))
}

func TestUpdateApplicationStatus_AlreadyDecided(t *testing.T) {
	d := newTestDeps()
	d.applications.On("Get", mock.Anything, "app-1").Return(acceptedApp("contrib"), nil)
	d.projects.On("Get", mock.Anything, "p1").Return(openProject(), nil)

	err := d.build().UpdateApplicationStatus(context.Background(), "lead", "app-1", domain.ApplicationRejected)

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConflict))
}

// --- milestone tests ---

func TestCreateMilestone_Success(t *testing.T) {
	d := newTestDeps()
	d.projects.On("Get", mock.Anything, "p1").Return(openProject(), nil)
	d.milestones.On("Put", mock.Anything, mock.AnythingOfType("*domain.Milestone")).Return(nil)

	m, err := d.build().CreateMilestone(context.Background(), "lead", "p1", "Data cleaning", 50000)

	require.NoError(t, err)
	assert.Equal(t, domain.MilestonePending, m.Status)
	assert.Equal(t, int64(50000), m.Amount)
}

func TestCreateMilestone_NonPositiveAmount(t *testing.T) {
	d := newTestDeps()
	d.projects.On("Get", mock.Anything, "p1").Return(openProject(), nil)

	_, err := d.build().CreateMilestone(context.Background(), "lead", "p1", "Free work", 0)

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

func TestUpdateMilestoneStatus_ContributorSubmits(t *testing.T) {
	d := newTestDeps()
	d.milestones.On("Get", mock.Anything, "m1").Return(&domain.Milestone{
		MilestoneID: "m1", ProjectID: "p1", Title: "Data cleaning", Status: domain.MilestonePending,
	}, nil)
	d.projects.On("Get", mock.Anything, "p1").Return(openProject(), nil)
	d.applications.On("GetByProjectAndApplicant", mock.Anything, "p1", "contrib").Return(acceptedApp("contrib"), nil)
	d.milestones.On("UpdateStatus", mock.Anything, "m1", domain.MilestoneSubmitted).Return(nil)
	d.notifier.On("Create", mock.Anything, mock.MatchedBy(func(req notification.CreateRequest) bool {
		return req.UserID == "lead" && req.Type == domain.NotificationMilestoneUpdate
	})).Return(&domain.Notification{}, nil)

	err := d.build().UpdateMilestoneStatus(context.Background(), "contrib", "m1", domain.MilestoneSubmitted)

	require.NoError(t, err)
}

func TestUpdateMilestoneStatus_LeadCannotSubmit(t *testing.T) {
	d := newTestDeps()
	d.milestones.On("Get", mock.Anything, "m1").Return(&domain.Milestone{
		MilestoneID: "m1", ProjectID: "p1", Status: domain.MilestonePending,
	}, nil)
	d.projects.On("Get", mock.Anything, "p1").Return(openProject(), nil)

	err := d.build().UpdateMilestoneStatus(context.Background(), "lead", "m1", domain.MilestoneSubmitted)

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrForbidden))
}

func TestUpdateMilestoneStatus_LeadApprovesNotifiesContributor(t *testing.T) {
	d := newTestDeps()
	d.milestones.On("Get", mock.Anything, "m1").Return(&domain.Milestone{
		MilestoneID: "m1", ProjectID: "p1", Title: "Data cleaning", Status: domain.MilestoneSubmitted,
	}, nil)
	d.projects.On("Get", mock.Anything, "p1").Return(openProject(), nil)
	d.milestones.On("UpdateStatus", mock.Anything, "m1", domain.MilestoneApproved).Return(nil)
	d.applications.On("ListByProject", mock.Anything, "p1").Return([]domain.ProjectApplication{*acceptedApp("contrib")}, nil)
	d.notifier.On("Create", mock.Anything, mock.MatchedBy(func(req notification.CreateRequest) bool {
		return req.UserID == "contrib"
	})).Return(&domain.Notification{}, nil)

	err := d.build().UpdateMilestoneStatus(context.Background(), "lead", "m1", domain.MilestoneApproved)

	require.NoError(t, err)
	d.notifier.AssertNumberOfCalls(t, "Create", 1)
}

func TestUpdateMilestoneStatus_ContributorCannotApprove(t *testing.T) {
	d := newTestDeps()
	d.milestones.On("Get", mock.Anything, "m1").Return(&domain.Milestone{
		MilestoneID: "m1", ProjectID: "p1", Status: domain.MilestoneSubmitted,
	}, nil)
	d.projects.On("Get", mock.Anything, "p1").Return(openProject(), nil)

	err := d.build().UpdateMilestoneStatus(context.Background(), "contrib", "m1", domain.MilestoneApproved)

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrForbidden))
}

func TestUpdateMilestoneStatus_OutOfOrderTransition(t *testing.T) {
	d := newTestDeps()
	d.milestones.On("Get", mock.Anything, "m1").Return(&domain.Milestone{
		MilestoneID: "m1", ProjectID: "p1", Status: domain.MilestonePending,
	}, nil)

	err := d.build().UpdateMilestoneStatus(context.Background(), "lead", "m1", domain.MilestonePaid)

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConflict))
}

// --- chat tests ---

func TestPostMessage_PublishesOnProjectTopic(t *testing.T) {
	d := newTestDeps()
	d.projects.On("Get", mock.Anything, "p1").Return(openProject(), nil)
	d.messages.On("Put", mock.Anything, mock.AnythingOfType("*domain.ChatMessage")).Return(nil)
	d.applications.On("ListByProject", mock.Anything, "p1").Return([]domain.ProjectApplication{*acceptedApp("contrib")}, nil)
	d.notifier.On("Create", mock.Anything, mock.Anything).Return(&domain.Notification{}, nil)

	var mu sync.Mutex
	var received []*domain.ChatMessage
	ch := d.broker.Channel(realtime.ProjectMessagesTopic("p1")).
		On(realtime.EventInsert, func(ev realtime.Event) {
			mu.Lock()
			received = append(received, ev.Payload.(*domain.ChatMessage))
			mu.Unlock()
		}).Subscribe()
	defer d.broker.RemoveChannel(ch)

	m, err := d.build().PostMessage(context.Background(), "lead", "p1", "kickoff at 10")

	require.NoError(t, err)
	assert.NotEmpty(t, m.MessageID)
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 1 && received[0].Body == "kickoff at 10"
	}, time.Second, 5*time.Millisecond)
}

func TestPostMessage_NonParticipantForbidden(t *testing.T) {
	d := newTestDeps()
	d.projects.On("Get", mock.Anything, "p1").Return(openProject(), nil)
	d.applications.On("GetByProjectAndApplicant", mock.Anything, "p1", "stranger").Return(nil, domain.ErrNotFound)

	_, err := d.build().PostMessage(context.Background(), "stranger", "p1", "hi")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrForbidden))
	d.messages.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestPostMessage_EmptyBodyRejected(t *testing.T) {
	d := newTestDeps()
	d.projects.On("Get", mock.Anything, "p1").Return(openProject(), nil)

	_, err := d.build().PostMessage(context.Background(), "lead", "p1", "")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

func TestListMessages_NonParticipantForbidden(t *testing.T) {
	d := newTestDeps()
	d.projects.On("Get", mock.Anything, "p1").Return(openProject(), nil)
	d.applications.On("GetByProjectAndApplicant", mock.Anything, "p1", "stranger").Return(nil, domain.ErrNotFound)

	_, err := d.build().ListMessages(context.Background(), "stranger", "p1", 50)

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrForbidden))
}

// --- participant tests ---

func TestIsParticipant_Lead(t *testing.T) {
	d := newTestDeps()
	d.projects.On("Get", mock.Anything, "p1").Return(openProject(), nil)

	ok, err := d.build().IsParticipant(context.Background(), "lead", "p1")

	require.NoError(t, err)
	assert.True(t, ok)
}

func TestIsParticipant_AcceptedApplicant(t *testing.T) {
	d := newTestDeps()
	d.projects.On("Get", mock.Anything, "p1").Return(openProject(), nil)
	d.applications.On("GetByProjectAndApplicant", mock.Anything, "p1", "contrib").Return(acceptedApp("contrib"), nil)

	ok, err := d.build().IsParticipant(context.Background(), "contrib", "p1")

	require.NoError(t, err)
	assert.True(t, ok)
}

func TestIsParticipant_RejectedApplicant(t *testing.T) {
	d := newTestDeps()
	d.projects.On("Get", mock.Anything, "p1").Return(openProject(), nil)
	rejected := acceptedApp("contrib")
	rejected.Status = domain.ApplicationRejected
	d.applications.On("GetByProjectAndApplicant", mock.Anything, "p1", "contrib").Return(rejected, nil)

	ok, err := d.build().IsParticipant(context.Background(), "contrib", "p1")

	require.NoError(t, err)
	assert.False(t, ok)
}
