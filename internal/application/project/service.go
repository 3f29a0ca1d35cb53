package project

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Eldan-star/ResearchCollab/internal/application/notification"
	"github.com/Eldan-star/ResearchCollab/internal/domain"
	"github.com/Eldan-star/ResearchCollab/internal/pkg/id"
	"github.com/Eldan-star/ResearchCollab/internal/realtime"
)

// Service covers the collaboration workflows: posting projects, applying,
// accepting, milestone progression, and project chat. Each state change
// notifies the affected party and publishes on the realtime broker.
type Service interface {
	CreateProject(ctx context.Context, leadUserID string, req domain.CreateProjectRequest) (*domain.Project, error)
	GetProject(ctx context.Context, projectID string) (*domain.Project, error)
	ListByLead(ctx context.Context, leadUserID string) ([]domain.Project, error)
	CloseProject(ctx context.Context, userID, projectID string) error
	DeleteProject(ctx context.Context, userID, projectID string) error

	SubmitApplication(ctx context.Context, applicantID, projectID string, req domain.ApplyRequest) (*domain.ProjectApplication, error)
	ListApplications(ctx context.Context, userID, projectID string) ([]domain.ProjectApplication, error)
	UpdateApplicationStatus(ctx context.Context, userID, applicationID, status string) error

	CreateMilestone(ctx context.Context, userID, projectID, title string, amount int64) (*domain.Milestone, error)
	ListMilestones(ctx context.Context, userID, projectID string) ([]domain.Milestone, error)
	UpdateMilestoneStatus(ctx context.Context, userID, milestoneID, status string) error

	PostMessage(ctx context.Context, senderID, projectID, body string) (*domain.ChatMessage, error)
	ListMessages(ctx context.Context, userID, projectID string, limit int32) ([]domain.ChatMessage, error)
	IsParticipant(ctx context.Context, userID, projectID string) (bool, error)
}

type projectStore interface {
	Put(ctx context.Context, p *domain.Project) error
	Get(ctx context.Context, projectID string) (*domain.Project, error)
	ListByLead(ctx context.Context, leadUserID string) ([]domain.Project, error)
	Update(ctx context.Context, projectID string, updates map[string]interface{}) error
	SoftDelete(ctx context.Context, projectID string) error
}

type applicationStore interface {
	Put(ctx context.Context, a *domain.ProjectApplication) error
	Get(ctx context.Context, applicationID string) (*domain.ProjectApplication, error)
	ListByProject(ctx context.Context, projectID string) ([]domain.ProjectApplication, error)
	GetByProjectAndApplicant(ctx context.Context, projectID, applicantID string) (*domain.ProjectApplication, error)
	UpdateStatus(ctx context.Context, applicationID, status string) error
}

type milestoneStore interface {
	Put(ctx context.Context, m *domain.Milestone) error
	Get(ctx context.Context, milestoneID string) (*domain.Milestone, error)
	ListByProject(ctx context.Context, projectID string) ([]domain.Milestone, error)
	UpdateStatus(ctx context.Context, milestoneID, status string) error
}

type messageStore interface {
	Put(ctx context.Context, m *domain.ChatMessage) error
	ListByProject(ctx context.Context, projectID string, limit int32) ([]domain.ChatMessage, error)
}

type notifier interface {
	Create(ctx context.Context, req notification.CreateRequest) (*domain.Notification, error)
}

type ServiceDeps struct {
	ProjectRepo     projectStore
	ApplicationRepo applicationStore
	MilestoneRepo   milestoneStore
	MessageRepo     messageStore
	Notifier        notifier
	Broker          *realtime.Broker
}

type service struct {
	projects     projectStore
	applications applicationStore
	milestones   milestoneStore
	messages     messageStore
	notifier     notifier
	broker       *realtime.Broker
}

func NewService(deps ServiceDeps) Service {
	return &service{
		projects:     deps.ProjectRepo,
		applications: deps.ApplicationRepo,
		milestones:   deps.MilestoneRepo,
		messages:     deps.MessageRepo,
		notifier:     deps.Notifier,
		broker:       deps.Broker,
	}
}

func (s *service) CreateProject(ctx context.Context, leadUserID string, req domain.CreateProjectRequest) (*domain.Project, error) {
	now := time.Now().UTC()
	p := &domain.Project{
		ProjectID:   id.New(),
		LeadUserID:  leadUserID,
		Title:       req.Title,
		Description: req.Description,
		Status:      "open",
		Enable:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.projects.Put(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *service) GetProject(ctx context.Context, projectID string) (*domain.Project, error) {
	p, err := s.projects.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !p.Enable {
		return nil, fmt.Errorf("project deleted: %w", domain.ErrNotFound)
	}
	return p, nil
}

func (s *service) ListByLead(ctx context.Context, leadUserID string) ([]domain.Project, error) {
	all, err := s.projects.ListByLead(ctx, leadUserID)
	if err != nil {
		return nil, err
	}
	active := all[:0]
	for _, p := range all {
		if p.Enable {
			active = append(active, p)
		}
	}
	return active, nil
}

func (s *service) CloseProject(ctx context.Context, userID, projectID string) error {
	if err := s.requireLead(ctx, userID, projectID); err != nil {
		return err
	}
	return s.projects.Update(ctx, projectID, map[string]interface{}{"status": "closed"})
}

func (s *service) DeleteProject(ctx context.Context, userID, projectID string) error {
	if err := s.requireLead(ctx, userID, projectID); err != nil {
		return err
	}
	return s.projects.SoftDelete(ctx, projectID)
}

// SubmitApplication creates a pending application and notifies the project
// lead. Double applications to the same project are rejected.
func (s *service) SubmitApplication(ctx context.Context, applicantID, projectID string, req domain.ApplyRequest) (*domain.ProjectApplication, error) {
	p, err := s.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if p.Status != "open" {
		return nil, fmt.Errorf("project not open for applications: %w", domain.ErrConflict)
	}
	if p.LeadUserID == applicantID {
		return nil, fmt.Errorf("cannot apply to own project: %w", domain.ErrBadRequest)
	}
	if _, err := s.applications.GetByProjectAndApplicant(ctx, projectID, applicantID); err == nil {
		return nil, fmt.Errorf("already applied: %w", domain.ErrConflict)
	}
	now := time.Now().UTC()
	a := &domain.ProjectApplication{
		ApplicationID: id.New(),
		ProjectID:     projectID,
		ApplicantID:   applicantID,
		CoverLetter:   req.CoverLetter,
		Status:        domain.ApplicationPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.applications.Put(ctx, a); err != nil {
		return nil, err
	}
	s.notify(ctx, notification.CreateRequest{
		UserID:        p.LeadUserID,
		Type:          domain.NotificationNewApplication,
		Message:       fmt.Sprintf("New application for %q", p.Title),
		ProjectID:     &a.ProjectID,
		ApplicationID: &a.ApplicationID,
	})
	return a, nil
}

func (s *service) ListApplications(ctx context.Context, userID, projectID string) ([]domain.ProjectApplication, error) {
	if err := s.requireLead(ctx, userID, projectID); err != nil {
		return nil, err
	}
	return s.applications.ListByProject(ctx, projectID)
}

// UpdateApplicationStatus accepts or rejects a pending application. Only the
// project lead may decide, and decided applications are final.
func (s *service) UpdateApplicationStatus(ctx context.Context, userID, applicationID, status string) error {
	if status != domain.ApplicationAccepted && status != domain.ApplicationRejected {
		return fmt.Errorf("invalid application status %q: %w", status, domain.ErrBadRequest)
	}
	a, err := s.applications.Get(ctx, applicationID)
	if err != nil {
		return err
	}
	p, err := s.GetProject(ctx, a.ProjectID)
	if err != nil {
		return err
	}
	if p.LeadUserID != userID {
		return fmt.Errorf("only the project lead may decide applications: %w", domain.ErrForbidden)
	}
	if a.Status != domain.ApplicationPending {
		return fmt.Errorf("application already decided: %w", domain.ErrConflict)
	}
	if err := s.applications.UpdateStatus(ctx, applicationID, status); err != nil {
		return err
	}
	s.notify(ctx, notification.CreateRequest{
		UserID:        a.ApplicantID,
		Type:          domain.NotificationApplicationStatus,
		Message:       fmt.Sprintf("Your application to %q was %s", p.Title, status),
		ProjectID:     &a.ProjectID,
		ApplicationID: &a.ApplicationID,
	})
	return nil
}

func (s *service) CreateMilestone(ctx context.Context, userID, projectID, title string, amount int64) (*domain.Milestone, error) {
	if err := s.requireLead(ctx, userID, projectID); err != nil {
		return nil, err
	}
	if amount <= 0 {
		return nil, fmt.Errorf("milestone amount must be positive: %w", domain.ErrBadRequest)
	}
	now := time.Now().UTC()
	m := &domain.Milestone{
		MilestoneID: id.New(),
		ProjectID:   projectID,
		Title:       title,
		Amount:      amount,
		Status:      domain.MilestonePending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.milestones.Put(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *service) ListMilestones(ctx context.Context, userID, projectID string) ([]domain.Milestone, error) {
	ok, err := s.IsParticipant(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("not a project participant: %w", domain.ErrForbidden)
	}
	return s.milestones.ListByProject(ctx, projectID)
}

// milestone status transitions: pending->submitted (contributor),
// submitted->approved (lead), approved->paid (lead).
var milestoneNext = map[string]string{
	domain.MilestoneSubmitted: domain.MilestonePending,
	domain.MilestoneApproved:  domain.MilestoneSubmitted,
	domain.MilestonePaid:      domain.MilestoneApproved,
}

func (s *service) UpdateMilestoneStatus(ctx context.Context, userID, milestoneID, status string) error {
	prev, ok := milestoneNext[status]
	if !ok {
		return fmt.Errorf("invalid milestone status %q: %w", status, domain.ErrBadRequest)
	}
	m, err := s.milestones.Get(ctx, milestoneID)
	if err != nil {
		return err
	}
	if m.Status != prev {
		return fmt.Errorf("milestone is %q, cannot move to %q: %w", m.Status, status, domain.ErrConflict)
	}
	p, err := s.GetProject(ctx, m.ProjectID)
	if err != nil {
		return err
	}
	isLead := p.LeadUserID == userID
	if status == domain.MilestoneSubmitted {
		// Submission is the contributor's move.
		participant, err := s.IsParticipant(ctx, userID, m.ProjectID)
		if err != nil {
			return err
		}
		if !participant || isLead {
			return fmt.Errorf("only the contributor may submit a milestone: %w", domain.ErrForbidden)
		}
	} else if !isLead {
		return fmt.Errorf("only the project lead may approve or pay milestones: %w", domain.ErrForbidden)
	}
	if err := s.milestones.UpdateStatus(ctx, milestoneID, status); err != nil {
		return err
	}

	// Notify the other side of the table.
	target := p.LeadUserID
	if isLead {
		if contributor, err := s.acceptedContributor(ctx, m.ProjectID); err == nil {
			target = contributor
		} else {
			return nil
		}
	}
	s.notify(ctx, notification.CreateRequest{
		UserID:      target,
		Type:        domain.NotificationMilestoneUpdate,
		Message:     fmt.Sprintf("Milestone %q is now %s", m.Title, status),
		ProjectID:   &m.ProjectID,
		MilestoneID: &m.MilestoneID,
	})
	return nil
}

// PostMessage persists a chat message and publishes it on the project's
// realtime topic. Only participants may post.
func (s *service) PostMessage(ctx context.Context, senderID, projectID, body string) (*domain.ChatMessage, error) {
	ok, err := s.IsParticipant(ctx, senderID, projectID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("not a project participant: %w", domain.ErrForbidden)
	}
	if body == "" {
		return nil, fmt.Errorf("empty message body: %w", domain.ErrBadRequest)
	}
	m := &domain.ChatMessage{
		MessageID: id.New(),
		ProjectID: projectID,
		SenderID:  senderID,
		Body:      body,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.messages.Put(ctx, m); err != nil {
		return nil, err
	}
	if s.broker != nil {
		s.broker.Publish(realtime.ProjectMessagesTopic(projectID), realtime.EventInsert, m)
	}

	// Notify the counterparty so the message shows up in their feed too.
	p, err := s.GetProject(ctx, projectID)
	if err == nil {
		target := p.LeadUserID
		if senderID == p.LeadUserID {
			contributor, err := s.acceptedContributor(ctx, projectID)
			if err != nil {
				return m, nil
			}
			target = contributor
		}
		s.notify(ctx, notification.CreateRequest{
			UserID:    target,
			Type:      domain.NotificationNewMessage,
			Message:   fmt.Sprintf("New message in %q", p.Title),
			ProjectID: &projectID,
		})
	}
	return m, nil
}

func (s *service) ListMessages(ctx context.Context, userID, projectID string, limit int32) ([]domain.ChatMessage, error) {
	ok, err := s.IsParticipant(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("not a project participant: %w", domain.ErrForbidden)
	}
	return s.messages.ListByProject(ctx, projectID, limit)
}

// IsParticipant reports whether userID is the project lead or an accepted
// applicant.
func (s *service) IsParticipant(ctx context.Context, userID, projectID string) (bool, error) {
	p, err := s.projects.Get(ctx, projectID)
	if err != nil {
		return false, err
	}
	if p.LeadUserID == userID {
		return true, nil
	}
	a, err := s.applications.GetByProjectAndApplicant(ctx, projectID, userID)
	if err != nil {
		return false, nil
	}
	return a.Status == domain.ApplicationAccepted, nil
}

func (s *service) requireLead(ctx context.Context, userID, projectID string) error {
	p, err := s.GetProject(ctx, projectID)
	if err != nil {
		return err
	}
	if p.LeadUserID != userID {
		return fmt.Errorf("only the project lead may do this: %w", domain.ErrForbidden)
	}
	return nil
}

func (s *service) acceptedContributor(ctx context.Context, projectID string) (string, error) {
	apps, err := s.applications.ListByProject(ctx, projectID)
	if err != nil {
		return "", err
	}
	for _, a := range apps {
		if a.Status == domain.ApplicationAccepted {
			return a.ApplicantID, nil
		}
	}
	return "", fmt.Errorf("no accepted contributor: %w", domain.ErrNotFound)
}

func (s *service) notify(ctx context.Context, req notification.CreateRequest) {
	if s.notifier == nil {
		return
	}
	if _, err := s.notifier.Create(ctx, req); err != nil {
		slog.Warn("failed to create notification", "user_id", req.UserID, "type", req.Type, "err", err)
	}
}
