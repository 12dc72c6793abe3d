package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	directory "orgportal/internal/directory/models"
	"orgportal/internal/identifier"
	notifmodels "orgportal/internal/notification/models"
	"orgportal/internal/registration/metrics"
	"orgportal/internal/registration/models"
	"orgportal/internal/registration/tracer"
	"orgportal/internal/sentinel"
	tenantmodels "orgportal/internal/tenant/models"
	id "orgportal/pkg/domain"
	dErrors "orgportal/pkg/domain-errors"
)

// maxAllocationRetries bounds the retry loop around identifier collisions.
// The allocator re-derives identifiers from existing rows, so two concurrent
// transactions can compute the same next identifier; the store's unique
// constraint rejects the loser and the whole transaction is retried.
const maxAllocationRetries = 3

// notifyTimeout caps the post-commit email dispatch.
const notifyTimeout = 15 * time.Second

// Service orchestrates the registration-approval workflow: it accepts
// submissions, routes them to an approver, applies decisions exactly once,
// and on acceptance provisions the tenant and user records atomically.
type Service struct {
	requests      RequestStore
	users         UserStore
	tenants       TenantStore
	notifications NotificationStore
	storeTx       StoreTx
	validator     *Validator
	router        *Router
	notifier      DecisionNotifier
	logger        *slog.Logger
	metrics       *metrics.Metrics
	tracer        tracer.Tracer
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithNotifier(n DecisionNotifier) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

// NewService creates the workflow service. The storeTx runner must span the
// same stores passed here so that reads and writes of one operation share a
// transaction.
func NewService(
	requests RequestStore,
	users UserStore,
	tenants TenantStore,
	notifications NotificationStore,
	storeTx StoreTx,
	policy Policy,
	opts ...Option,
) *Service {
	s := &Service{
		requests:      requests,
		users:         users,
		tenants:       tenants,
		notifications: notifications,
		storeTx:       storeTx,
		logger:        slog.Default(),
		tracer:        tracer.NewNoop(),
	}
	s.validator = NewValidator(policy, users, requests, tenants)
	s.router = NewRouter(users, tenants)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit validates a candidate submission and persists it as a pending
// request. The approver is computed at submission time and recorded on the
// request; if one exists they also receive an in-portal notification.
func (s *Service) Submit(ctx context.Context, c Candidate) (*models.Request, error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanSubmit,
		tracer.String(tracer.AttrRole, c.Role.String()),
		tracer.String(tracer.AttrCompany, c.CompanyName),
	)
	var created *models.Request
	err := s.withAllocationRetry(ctx, func(ctx context.Context) error {
		return s.storeTx.RunInTx(ctx, func(ctx context.Context) error {
			if err := s.validator.Validate(ctx, c); err != nil {
				return err
			}

			hash, err := bcrypt.GenerateFromPassword([]byte(c.Password), bcrypt.DefaultCost)
			if err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
			}

			requestIDs, err := s.requests.AllIDs(ctx)
			if err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list registration ids")
			}
			requestID := id.RegistrationID(identifier.NextSequential(requestIDs, identifier.RegistrationPrefix))

			request, err := models.NewRequest(requestID, c.UserName, c.Email, string(hash),
				c.Role, c.Department, c.CompanyName, time.Now().UTC())
			if err != nil {
				return err
			}

			approver, err := s.router.ApproverFor(ctx, c.Role, c.CompanyName, c.Department)
			if err != nil {
				return err
			}
			if approver != nil {
				request.AssignedManagerID = approver.ID
			}

			if err := s.requests.Create(ctx, request); err != nil {
				if errors.Is(err, sentinel.ErrAlreadyUsed) {
					return err
				}
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist registration request")
			}

			if approver != nil {
				if err := s.notifyApprover(ctx, approver, request); err != nil {
					return err
				}
			}

			created = request
			return nil
		})
	})
	span.End(err)
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncrementSubmitted()
	}
	s.logger.InfoContext(ctx, "registration request submitted",
		"registration_id", created.ID,
		"role", created.Role,
		"company", created.CompanyName,
		"assigned_manager_id", created.AssignedManagerID,
	)
	return created, nil
}

// Decide applies a terminal decision to a pending request. The acting
// approver's authority is re-checked against live org state, and on
// acceptance the hierarchy uniqueness rules are re-validated before the
// user (and, for a new company, the tenant) is provisioned. Everything up
// to and including the status change commits in one transaction; the email
// to the requester goes out after commit, best-effort.
func (s *Service) Decide(ctx context.Context, requestID id.RegistrationID, decision models.Decision, actorID id.UserID) (*models.Request, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, tracer.SpanDecide,
		tracer.String(tracer.AttrRegistrationID, requestID.String()),
		tracer.String(tracer.AttrDecision, decision.String()),
		tracer.String(tracer.AttrApprover, actorID.String()),
	)

	var (
		decided *models.Request
		newUser *directory.User
	)
	err := s.withAllocationRetry(ctx, func(ctx context.Context) error {
		return s.storeTx.RunInTx(ctx, func(ctx context.Context) error {
			request, err := s.requests.FindByID(ctx, requestID)
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "registration request not found")
			}
			if err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load registration request")
			}

			// Terminal requests are immutable history; reject the replay
			// before any authorization or provisioning work runs.
			if request.Status.Terminal() {
				return dErrors.New(dErrors.CodeInvalidState, "request has already been decided")
			}

			if err := s.authorizeDecision(ctx, actorID, request, span); err != nil {
				return err
			}

			if decision == models.StatusAccepted {
				user, err := s.provisionAccount(ctx, request, span)
				if err != nil {
					return err
				}
				newUser = user
			}

			if err := request.Decide(decision, time.Now().UTC()); err != nil {
				return err
			}
			if err := s.requests.Update(ctx, request); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist decision")
			}
			decided = request
			return nil
		})
	})
	span.End(err)
	if err != nil {
		return nil, err
	}

	accepted := decided.Status == models.StatusAccepted
	if s.metrics != nil {
		s.metrics.IncrementDecided(accepted)
		s.metrics.ObserveDecide(start)
	}
	s.logger.InfoContext(ctx, "registration request decided",
		"registration_id", decided.ID,
		"decision", decided.Status,
		"approver_id", actorID,
	)

	s.dispatchDecisionEmail(ctx, decided, newUser)
	return decided, nil
}

// Delete removes a decided request. Pending requests must be decided first.
func (s *Service) Delete(ctx context.Context, requestID id.RegistrationID, actorID id.UserID) error {
	ctx, span := s.tracer.Start(ctx, tracer.SpanDelete,
		tracer.String(tracer.AttrRegistrationID, requestID.String()),
	)
	err := s.storeTx.RunInTx(ctx, func(ctx context.Context) error {
		request, err := s.requests.FindByID(ctx, requestID)
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "registration request not found")
		}
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load registration request")
		}

		actor, err := s.loadActor(ctx, actorID)
		if err != nil {
			return err
		}
		if actor.Role != directory.RoleAdmin {
			authorized, err := s.router.CanApprove(ctx, actor, request)
			if err != nil {
				return err
			}
			if !authorized {
				return dErrors.New(dErrors.CodeForbidden, "you are not authorized to delete this request")
			}
		}

		if !request.Deletable() {
			return dErrors.New(dErrors.CodeInvalidState, "pending requests must be decided before deletion")
		}
		if err := s.requests.Delete(ctx, requestID); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete registration request")
		}
		return nil
	})
	span.End(err)
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "registration request deleted",
		"registration_id", requestID,
		"actor_id", actorID,
	)
	return nil
}

// ListForActor returns the requests the acting user is empowered to decide:
// the Admin sees Manager requests, a Manager sees DeptManager requests for
// their company, and a DeptManager sees Employee requests for their
// department. Employees have no approval authority.
func (s *Service) ListForActor(ctx context.Context, actorID id.UserID) ([]*models.Request, error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanList,
		tracer.String(tracer.AttrApprover, actorID.String()),
	)
	var out []*models.Request
	err := func() error {
		actor, err := s.loadActor(ctx, actorID)
		if err != nil {
			return err
		}

		var filter models.Filter
		switch actor.Role {
		case directory.RoleAdmin:
			filter = models.Filter{Role: directory.RoleManager}
		case directory.RoleManager:
			companyName, err := s.companyNameOf(ctx, actor)
			if err != nil {
				return err
			}
			filter = models.Filter{Role: directory.RoleDeptManager, CompanyName: companyName}
		case directory.RoleDeptManager:
			companyName, err := s.companyNameOf(ctx, actor)
			if err != nil {
				return err
			}
			filter = models.Filter{Role: directory.RoleEmployee, CompanyName: companyName, Department: actor.Department}
		default:
			return dErrors.New(dErrors.CodeForbidden, "your role has no approval authority")
		}

		out, err = s.requests.List(ctx, filter)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list registration requests")
		}
		return nil
	}()
	span.End(err)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []*models.Request{}
	}
	return out, nil
}

// Get returns a single request visible to the acting user.
func (s *Service) Get(ctx context.Context, requestID id.RegistrationID, actorID id.UserID) (*models.Request, error) {
	request, err := s.requests.FindByID(ctx, requestID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "registration request not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load registration request")
	}

	actor, err := s.loadActor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if actor.Role == directory.RoleAdmin {
		return request, nil
	}
	authorized, err := s.router.CanApprove(ctx, actor, request)
	if err != nil {
		return nil, err
	}
	if !authorized {
		return nil, dErrors.New(dErrors.CodeForbidden, "you are not authorized to view this request")
	}
	return request, nil
}

// authorizeDecision loads the actor and verifies decision authority against
// the live org hierarchy. The stored AssignedManagerID is advisory history:
// a replaced approver loses authority even over requests once routed to
// them.
func (s *Service) authorizeDecision(ctx context.Context, actorID id.UserID, request *models.Request, span tracer.Span) error {
	actor, err := s.loadActor(ctx, actorID)
	if err != nil {
		return err
	}
	authorized, err := s.router.CanApprove(ctx, actor, request)
	if err != nil {
		return err
	}
	if !authorized {
		return dErrors.New(dErrors.CodeForbidden, "you are not authorized to decide this request")
	}
	span.SetAttributes(tracer.String(tracer.AttrRole, request.Role.String()))
	return nil
}

// provisionAccount re-validates the hierarchy uniqueness rules and creates
// the user, and for a Manager accepting into a new company also the tenant.
// Runs inside the decision transaction.
func (s *Service) provisionAccount(ctx context.Context, request *models.Request, span tracer.Span) (*directory.User, error) {
	tenant, err := s.resolveTenant(ctx, request, span)
	if err != nil {
		return nil, err
	}

	if err := s.recheckUniqueness(ctx, request, tenant); err != nil {
		return nil, err
	}

	userID, err := s.allocateUserID(ctx, request, tenant)
	if err != nil {
		return nil, err
	}

	user, err := directory.NewUser(userID, request.UserName, request.Email, request.PasswordHash,
		request.Role, tenant.ID, request.Department, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	user.RegistrationID = request.ID

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create user")
	}
	span.AddEvent(tracer.EventUserCreated, tracer.String("user_id", user.ID.String()))
	return user, nil
}

// resolveTenant finds the target tenant, creating it when a Manager is
// accepted into a company that does not exist yet.
func (s *Service) resolveTenant(ctx context.Context, request *models.Request, span tracer.Span) (*tenantmodels.Tenant, error) {
	tenant, err := s.tenants.FindByName(ctx, request.CompanyName)
	if err == nil {
		return tenant, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up company")
	}

	if request.Role != directory.RoleManager {
		return nil, dErrors.New(dErrors.CodeConflict, "company no longer exists")
	}

	tenantIDs, err := s.tenants.AllIDs(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list tenant ids")
	}
	tenantID := id.TenantID(identifier.NextSequential(tenantIDs, identifier.TenantPrefix))

	tenant, err = tenantmodels.NewTenant(tenantID, request.CompanyName, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if err := s.tenants.CreateIfNameAvailable(ctx, tenant); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create tenant")
	}
	span.AddEvent(tracer.EventTenantCreated, tracer.String("tenant_id", tenant.ID.String()))
	return tenant, nil
}

// recheckUniqueness re-runs the Manager and DeptManager uniqueness rules at
// decision time. A competing request accepted between submission and now can
// have claimed the position already.
func (s *Service) recheckUniqueness(ctx context.Context, request *models.Request, tenant *tenantmodels.Tenant) error {
	switch request.Role {
	case directory.RoleManager:
		_, err := s.users.FindByTenantRole(ctx, tenant.ID, directory.RoleManager)
		if err == nil {
			return dErrors.New(dErrors.CodeConflict, "company already has a manager")
		}
		if !errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check company manager")
		}
	case directory.RoleDeptManager:
		_, err := s.users.FindByTenantDeptRole(ctx, tenant.ID, request.Department, directory.RoleDeptManager)
		if err == nil {
			return dErrors.New(dErrors.CodeConflict, "department already has a department manager")
		}
		if !errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check department manager")
		}
	}
	return nil
}

// allocateUserID derives the company-scoped user identifier, e.g. ACMEMA007.
func (s *Service) allocateUserID(ctx context.Context, request *models.Request, tenant *tenantmodels.Tenant) (id.UserID, error) {
	companyUsers, err := s.users.ListByTenant(ctx, tenant.ID)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to list company users")
	}
	companyIDs := make([]string, 0, len(companyUsers))
	for _, u := range companyUsers {
		companyIDs = append(companyIDs, u.ID.String())
	}

	allIDs, err := s.users.AllIDs(ctx)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to list user ids")
	}

	prefix, err := identifier.CompanyPrefix(request.CompanyName, companyIDs, allIDs)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to derive company prefix")
	}

	token, err := roleToken(request.Role)
	if err != nil {
		return "", err
	}
	return id.UserID(identifier.NextScoped(allIDs, prefix, token)), nil
}

func roleToken(role directory.Role) (string, error) {
	switch role {
	case directory.RoleManager:
		return identifier.TokenManager, nil
	case directory.RoleDeptManager:
		return identifier.TokenDeptManager, nil
	case directory.RoleEmployee:
		return identifier.TokenEmployee, nil
	default:
		return "", dErrors.New(dErrors.CodeInternal, fmt.Sprintf("no identifier token for role %q", role))
	}
}

// notifyApprover records an in-portal notification for the assigned
// approver. Runs inside the submission transaction.
func (s *Service) notifyApprover(ctx context.Context, approver *directory.User, request *models.Request) error {
	notifIDs, err := s.notifications.AllIDs(ctx)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list notification ids")
	}
	notifID := id.NotificationID(identifier.NextSequential(notifIDs, identifier.NotificationPrefix))

	message := fmt.Sprintf("New registration request from %s for %s at %s awaits your decision.",
		request.UserName, humanRole(request.Role), request.CompanyName)
	n, err := notifmodels.NewNotification(notifID, approver.ID, message, request.ID, time.Now().UTC())
	if err != nil {
		return err
	}
	if err := s.notifications.Create(ctx, n); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return err
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create notification")
	}
	return nil
}

// dispatchDecisionEmail informs the requester after the decision has
// committed. Failures are logged and swallowed.
func (s *Service) dispatchDecisionEmail(ctx context.Context, request *models.Request, newUser *directory.User) {
	if s.notifier == nil {
		return
	}
	accepted := request.Status == models.StatusAccepted
	var newUserID id.UserID
	if newUser != nil {
		newUserID = newUser.ID
	}
	email := request.Email
	userName := request.UserName
	requestID := request.ID

	go func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
		defer cancel()
		if err := s.notifier.NotifyDecision(ctx, email, userName, accepted, newUserID); err != nil {
			s.logger.WarnContext(ctx, "failed to dispatch decision email",
				"registration_id", requestID,
				"error", err,
			)
		}
	}()
}

func (s *Service) loadActor(ctx context.Context, actorID id.UserID) (*directory.User, error) {
	actor, err := s.users.FindByID(ctx, actorID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "acting user not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load acting user")
	}
	return actor, nil
}

func (s *Service) companyNameOf(ctx context.Context, actor *directory.User) (string, error) {
	tenant, err := s.tenants.FindByID(ctx, actor.TenantID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return "", dErrors.New(dErrors.CodeInternal, "acting user's company not found")
	}
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to load acting user's company")
	}
	return tenant.Name, nil
}

// withAllocationRetry retries fn when a store rejects a freshly allocated
// identifier as already used. Validation, authorization, and state errors
// pass through untouched.
func (s *Service) withAllocationRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 0; attempt < maxAllocationRetries; attempt++ {
		err = fn(ctx)
		if err == nil || !errors.Is(err, sentinel.ErrAlreadyUsed) {
			return err
		}
		s.logger.WarnContext(ctx, "identifier collision, retrying",
			"attempt", attempt+1,
			"error", err,
		)
	}
	return dErrors.Wrap(err, dErrors.CodeConflict, "identifier allocation kept colliding")
}

func humanRole(role directory.Role) string {
	return strings.ReplaceAll(role.String(), "_", " ")
}
