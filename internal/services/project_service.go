package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mdnaeem95/halaltech/internal/authctx"
	"github.com/mdnaeem95/halaltech/internal/models"
	"github.com/mdnaeem95/halaltech/internal/realtime"
	apperrors "github.com/mdnaeem95/halaltech/pkg/errors"
	"github.com/mdnaeem95/halaltech/pkg/metrics"
)

var (
	// ErrProjectNotFound is returned for unknown projects and for projects the caller cannot see.
	ErrProjectNotFound = apperrors.New("PROJECT_NOT_FOUND", "Project not found", http.StatusNotFound)
	// ErrUnknownProjectStatus rejects values outside the lifecycle enum.
	ErrUnknownProjectStatus = apperrors.New("INVALID_STATUS", "Unknown project status", http.StatusBadRequest)
	// ErrInvalidStatusTransition rejects moves the lifecycle does not allow.
	ErrInvalidStatusTransition = apperrors.New("INVALID_STATUS_TRANSITION", "Project cannot move to the requested status", http.StatusConflict)
	// ErrInvalidProjectStatus is returned when an operation needs the project in a different status.
	ErrInvalidProjectStatus = apperrors.New("INVALID_PROJECT_STATUS", "Project is not in a status that allows this operation", http.StatusConflict)
	// ErrPackageMismatch is returned when a package does not belong to the chosen service.
	ErrPackageMismatch = apperrors.New("PACKAGE_SERVICE_MISMATCH", "Package does not belong to the selected service", http.StatusBadRequest)
	// ErrAssignmentExists is returned when the freelancer is already on the project.
	ErrAssignmentExists = apperrors.New("ASSIGNMENT_EXISTS", "Freelancer is already assigned to this project", http.StatusConflict)
	// ErrAssignmentNotFound is returned when removing an unknown assignment.
	ErrAssignmentNotFound = apperrors.New("ASSIGNMENT_NOT_FOUND", "Assignment not found", http.StatusNotFound)
	// ErrFreelancerNotApproved is returned when assigning a provider without an approved application.
	ErrFreelancerNotApproved = apperrors.New("FREELANCER_NOT_APPROVED", "Only approved freelancers can be assigned", http.StatusConflict)
)

// CreateProjectInput describes a client inquiry.
type CreateProjectInput struct {
	Title        string
	Description  string
	ServiceID    string
	PackageID    string
	Requirements map[string]any
	BudgetRange  string
	Timeline     string
}

// UpdateProjectInput enumerates admin-editable project fields.
type UpdateProjectInput struct {
	Title       *string
	Description *string
	FinalPrice  *float64
	Deadline    *time.Time
}

// ListProjectsOptions filters project listings.
type ListProjectsOptions struct {
	Status string
}

// AssignFreelancerInput links an approved freelancer to a project.
type AssignFreelancerInput struct {
	FreelancerID string
	Role         string
}

// ProjectService manages the engagement lifecycle of client projects.
type ProjectService struct {
	db            *gorm.DB
	audit         *AuditService
	notifications *NotificationService
	hub           *realtime.Hub
}

// NewProjectService constructs a ProjectService. notifications and hub may be nil.
func NewProjectService(db *gorm.DB, audit *AuditService, notifications *NotificationService, hub *realtime.Hub) (*ProjectService, error) {
	if db == nil {
		return nil, errors.New("project service: db is required")
	}
	return &ProjectService{db: db, audit: audit, notifications: notifications, hub: hub}, nil
}

// Create registers a client inquiry. Projects always start in inquiry.
func (s *ProjectService) Create(ctx context.Context, input CreateProjectInput) (*models.Project, error) {
	ctx = ensureContext(ctx)
	session, err := requireRole(ctx, models.RoleClient)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewBadRequest("title is required")
	}

	project := &models.Project{
		ClientID:     session.ProfileID,
		Title:        title,
		Description:  strings.TrimSpace(input.Description),
		Requirements: models.JSONObject(input.Requirements),
		BudgetRange:  strings.TrimSpace(input.BudgetRange),
		Timeline:     strings.TrimSpace(input.Timeline),
		Status:       models.ProjectInquiry,
	}

	db := s.db.WithContext(ctx)
	serviceID := strings.TrimSpace(input.ServiceID)
	if packageID := strings.TrimSpace(input.PackageID); packageID != "" {
		var pkg models.ServicePackage
		if err := db.Take(&pkg, "id = ? AND is_active = ?", packageID, true).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrPackageNotFound
			}
			return nil, fmt.Errorf("project service: load package: %w", err)
		}
		if serviceID != "" && serviceID != pkg.ServiceID {
			return nil, ErrPackageMismatch
		}
		serviceID = pkg.ServiceID
		project.PackageID = &pkg.ID
		price := pkg.Price
		project.QuotedPrice = &price
	}
	if serviceID != "" {
		var service models.Service
		if err := db.Take(&service, "id = ? AND is_active = ?", serviceID, true).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrServiceNotFound
			}
			return nil, fmt.Errorf("project service: load service: %w", err)
		}
		project.ServiceID = &service.ID
	}

	if err := db.Create(project).Error; err != nil {
		return nil, fmt.Errorf("project service: create project: %w", err)
	}

	recordAudit(s.audit, ctx, auditFromContext(ctx, "project.create", "projects", AuditSuccess, map[string]any{
		"project_id": project.ID,
	}))
	s.hub.BroadcastStream(realtime.StreamAdmin, realtime.Message{Event: "project.created", Data: project})
	return project, nil
}

// List returns the projects visible to the caller, newest first.
func (s *ProjectService) List(ctx context.Context, opts ListProjectsOptions) ([]models.Project, error) {
	ctx = ensureContext(ctx)
	session, err := requireSession(ctx)
	if err != nil {
		return nil, err
	}

	query := scopeProjects(s.db.WithContext(ctx).Model(&models.Project{}), session)
	if status := strings.TrimSpace(opts.Status); status != "" {
		if !models.ProjectStatus(status).Valid() {
			return nil, ErrUnknownProjectStatus
		}
		query = query.Where("projects.status = ?", status)
	}

	var projects []models.Project
	if err := query.
		Preload("Service").
		Preload("Package").
		Order("projects.created_at DESC").
		Find(&projects).Error; err != nil {
		return nil, fmt.Errorf("project service: list projects: %w", err)
	}
	return projects, nil
}

// ListAssigned returns the projects the calling service provider is assigned to.
func (s *ProjectService) ListAssigned(ctx context.Context) ([]models.Project, error) {
	ctx = ensureContext(ctx)
	if _, err := requireRole(ctx, models.RoleServiceProvider); err != nil {
		return nil, err
	}
	return s.List(ctx, ListProjectsOptions{})
}

// Get returns a project with its quote, invoices and assignments.
func (s *ProjectService) Get(ctx context.Context, id string) (*models.Project, error) {
	ctx = ensureContext(ctx)
	session, err := requireSession(ctx)
	if err != nil {
		return nil, err
	}

	var project models.Project
	err = scopeProjects(s.db.WithContext(ctx).Model(&models.Project{}), session).
		Preload("Client").
		Preload("Service").
		Preload("Package").
		Preload("Quote").
		Preload("Invoices", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Assignments", "status <> ?", models.AssignmentRemoved).
		Preload("Assignments.Freelancer").
		Where("projects.id = ?", strings.TrimSpace(id)).
		Take(&project).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("project service: get project: %w", err)
	}
	return &project, nil
}

// UpdateStatus moves a project along the lifecycle on behalf of an admin.
func (s *ProjectService) UpdateStatus(ctx context.Context, id, status string) (*models.Project, error) {
	ctx = ensureContext(ctx)
	if _, err := requireRole(ctx, models.RoleAdmin); err != nil {
		return nil, err
	}

	next := models.ProjectStatus(strings.TrimSpace(status))
	if !next.Valid() {
		return nil, ErrUnknownProjectStatus
	}

	var previous models.ProjectStatus
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		project, err := lockProject(tx, id)
		if err != nil {
			return err
		}
		previous = project.Status
		return transitionProject(tx, project, next, time.Now().UTC(), nil)
	})
	if err != nil {
		return nil, err
	}

	recordAudit(s.audit, ctx, auditFromContext(ctx, "project.status", "projects", AuditSuccess, map[string]any{
		"project_id": id,
		"from":       string(previous),
		"to":         string(next),
	}))

	project, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.announceStatus(ctx, project)
	return project, nil
}

// Update applies admin edits that do not affect the lifecycle.
func (s *ProjectService) Update(ctx context.Context, id string, input UpdateProjectInput) (*models.Project, error) {
	ctx = ensureContext(ctx)
	if _, err := requireRole(ctx, models.RoleAdmin); err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, apperrors.NewBadRequest("title cannot be empty")
		}
		updates["title"] = title
	}
	if input.Description != nil {
		updates["description"] = strings.TrimSpace(*input.Description)
	}
	if input.FinalPrice != nil {
		if *input.FinalPrice < 0 {
			return nil, apperrors.NewBadRequest("final_price cannot be negative")
		}
		updates["final_price"] = *input.FinalPrice
	}
	if input.Deadline != nil {
		updates["deadline"] = input.Deadline.UTC()
	}

	project, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(updates) == 0 {
		return project, nil
	}

	if err := s.db.WithContext(ctx).Model(&models.Project{}).Where("id = ?", project.ID).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("project service: update project: %w", err)
	}
	recordAudit(s.audit, ctx, auditFromContext(ctx, "project.update", "projects", AuditSuccess, map[string]any{
		"project_id": project.ID,
	}))

	return s.Get(ctx, id)
}

// Cancel lets a client withdraw their own project before work starts.
func (s *ProjectService) Cancel(ctx context.Context, id string) (*models.Project, error) {
	ctx = ensureContext(ctx)
	session, err := requireRole(ctx, models.RoleClient)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		project, err := lockProject(tx, id)
		if err != nil {
			return err
		}
		if project.ClientID != session.ProfileID {
			return ErrProjectNotFound
		}
		if project.Status != models.ProjectInquiry && project.Status != models.ProjectQuoted {
			return ErrInvalidProjectStatus
		}
		return transitionProject(tx, project, models.ProjectCancelled, time.Now().UTC(), nil)
	})
	if err != nil {
		return nil, err
	}

	recordAudit(s.audit, ctx, auditFromContext(ctx, "project.cancel", "projects", AuditSuccess, map[string]any{
		"project_id": id,
	}))

	project, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.announceStatus(ctx, project)
	return project, nil
}

// AssignFreelancer links an approved freelancer to a project. A previously
// removed assignment is reinstated.
func (s *ProjectService) AssignFreelancer(ctx context.Context, projectID string, input AssignFreelancerInput) (*models.ProjectAssignment, error) {
	ctx = ensureContext(ctx)
	session, err := requireRole(ctx, models.RoleAdmin)
	if err != nil {
		return nil, err
	}

	freelancerID := strings.TrimSpace(input.FreelancerID)
	if freelancerID == "" {
		return nil, apperrors.NewBadRequest("freelancer_id is required")
	}

	var assignment models.ProjectAssignment
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		project, err := lockProject(tx, projectID)
		if err != nil {
			return err
		}
		if project.Status.Terminal() {
			return ErrInvalidProjectStatus
		}

		var freelancer models.FreelancerProfile
		err = tx.Joins("JOIN profiles ON profiles.id = freelancer_profiles.profile_id").
			Where("freelancer_profiles.profile_id = ?", freelancerID).
			Where("profiles.role = ? AND profiles.is_active = ?", models.RoleServiceProvider, true).
			Take(&freelancer).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrFreelancerNotFound
		}
		if err != nil {
			return fmt.Errorf("project service: load freelancer: %w", err)
		}
		if freelancer.ApplicationStatus != models.ApplicationApproved {
			return ErrFreelancerNotApproved
		}

		err = tx.Where("project_id = ? AND freelancer_id = ?", project.ID, freelancerID).Take(&assignment).Error
		switch {
		case err == nil && assignment.Status != models.AssignmentRemoved:
			return ErrAssignmentExists
		case err == nil:
			assignment.Status = models.AssignmentAssigned
			assignment.Role = strings.TrimSpace(input.Role)
			assignment.AssignedBy = session.ProfileID
			return tx.Model(&assignment).Updates(map[string]any{
				"status":      assignment.Status,
				"role":        assignment.Role,
				"assigned_by": assignment.AssignedBy,
			}).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			assignment = models.ProjectAssignment{
				ProjectID:    project.ID,
				FreelancerID: freelancerID,
				Role:         strings.TrimSpace(input.Role),
				Status:       models.AssignmentAssigned,
				AssignedBy:   session.ProfileID,
			}
			if err := tx.Create(&assignment).Error; err != nil {
				if isUniqueConstraintError(err) {
					return ErrAssignmentExists
				}
				return fmt.Errorf("project service: create assignment: %w", err)
			}
			return nil
		default:
			return fmt.Errorf("project service: load assignment: %w", err)
		}
	})
	if err != nil {
		return nil, err
	}

	recordAudit(s.audit, ctx, auditFromContext(ctx, "project.assign", "project_assignments", AuditSuccess, map[string]any{
		"project_id":    projectID,
		"freelancer_id": freelancerID,
	}))
	s.notifications.Notify(ctx, CreateNotificationInput{
		Type:      models.NotificationProjectAssigned,
		Title:     "You have been assigned to a project",
		ActionURL: "/projects/" + projectID,
		Metadata:  map[string]any{"project_id": projectID},
	}, freelancerID)

	return &assignment, nil
}

// RemoveAssignment marks an assignment removed.
func (s *ProjectService) RemoveAssignment(ctx context.Context, projectID, freelancerID string) error {
	ctx = ensureContext(ctx)
	if _, err := requireRole(ctx, models.RoleAdmin); err != nil {
		return err
	}

	result := s.db.WithContext(ctx).Model(&models.ProjectAssignment{}).
		Where("project_id = ? AND freelancer_id = ? AND status <> ?", projectID, freelancerID, models.AssignmentRemoved).
		Update("status", models.AssignmentRemoved)
	if result.Error != nil {
		return fmt.Errorf("project service: remove assignment: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrAssignmentNotFound
	}

	recordAudit(s.audit, ctx, auditFromContext(ctx, "project.unassign", "project_assignments", AuditSuccess, map[string]any{
		"project_id":    projectID,
		"freelancer_id": freelancerID,
	}))
	return nil
}

func (s *ProjectService) announceStatus(ctx context.Context, project *models.Project) {
	recipients := projectParticipants(project)
	s.notifications.Notify(ctx, CreateNotificationInput{
		Type:      models.NotificationProjectStatus,
		Title:     fmt.Sprintf("Project %q is now %s", project.Title, strings.ReplaceAll(string(project.Status), "_", " ")),
		ActionURL: "/projects/" + project.ID,
		Metadata:  map[string]any{"project_id": project.ID, "status": string(project.Status)},
	}, recipients...)
	if s.hub != nil {
		s.hub.BroadcastToProfiles(realtime.StreamProjects, recipients, realtime.Message{
			Event: "project.status",
			Data:  map[string]any{"project_id": project.ID, "status": project.Status},
		})
	}
}

// scopeProjects restricts a projects query to what the session may see.
func scopeProjects(query *gorm.DB, session authctx.Session) *gorm.DB {
	switch session.Role {
	case models.RoleAdmin:
		return query
	case models.RoleServiceProvider:
		return query.Where("EXISTS (SELECT 1 FROM project_assignments pa WHERE pa.project_id = projects.id AND pa.freelancer_id = ? AND pa.status <> ?)",
			session.ProfileID, models.AssignmentRemoved)
	default:
		return query.Where("projects.client_id = ?", session.ProfileID)
	}
}

// lockProject reads a project for update inside tx.
func lockProject(tx *gorm.DB, id string) (*models.Project, error) {
	var project models.Project
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Take(&project, "id = ?", strings.TrimSpace(id)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("project service: lock project: %w", err)
	}
	return &project, nil
}

// transitionProject validates and persists a lifecycle move inside tx. extra
// carries additional column updates written in the same statement.
func transitionProject(tx *gorm.DB, project *models.Project, next models.ProjectStatus, now time.Time, extra map[string]any) error {
	if !next.Valid() {
		return ErrUnknownProjectStatus
	}
	if !project.Status.CanTransitionTo(next) {
		return ErrInvalidStatusTransition.WithMessage(
			fmt.Sprintf("Project cannot move from %s to %s", project.Status, next))
	}

	updates := map[string]any{"status": next}
	for key, value := range extra {
		updates[key] = value
	}
	switch next {
	case models.ProjectInProgress:
		if project.StartDate == nil {
			updates["start_date"] = now
		}
	case models.ProjectCompleted:
		updates["completed_at"] = now
	}

	if err := tx.Model(project).Updates(updates).Error; err != nil {
		return fmt.Errorf("project service: update status: %w", err)
	}

	metrics.ProjectTransitions.WithLabelValues(string(project.Status), string(next)).Inc()
	project.Status = next
	return nil
}

// projectParticipants returns the client and active freelancers of a loaded project.
func projectParticipants(project *models.Project) []string {
	ids := []string{project.ClientID}
	for _, assignment := range project.Assignments {
		if assignment.Status != models.AssignmentRemoved {
			ids = append(ids, assignment.FreelancerID)
		}
	}
	return ids
}
