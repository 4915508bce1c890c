package pileapi

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
	"github.com/pilecalc/pile-api/middleware/jwtware"
)

// IndexBanner is served at the API root
const IndexBanner = "This is the API for the NAVFAC pile design tool. Send requests to /login, /users and /users/:ID/projects."

// LoginResponse is the body of a successful login
type LoginResponse struct {
	User  PublicUser `json:"user"`
	Token string     `json:"token"`
}

// AuthController serves the account and project routes
type AuthController struct {
	auth         Authenticator
	repo         RepositoryManager
	register     *RegisterUserHandler
	update       *UpdateUserHandler
	guard        *OwnershipGuard
	cfg          Config
	logger       Logger
	activitySink ActivitySink
	protected    fiber.Handler
}

type AuthControllerOption func(*AuthController)

func WithControllerLogger(l Logger) AuthControllerOption {
	return func(a *AuthController) {
		a.logger = normalizeLogger(l)
	}
}

func WithControllerActivitySink(sink ActivitySink) AuthControllerOption {
	return func(a *AuthController) {
		a.activitySink = normalizeActivitySink(sink)
	}
}

// NewAuthController wires the controller. hasher is shared by the
// registration and profile update commands.
func NewAuthController(auth Authenticator, repo RepositoryManager, hasher PasswordAuthenticator, cfg Config, opts ...AuthControllerOption) *AuthController {
	a := &AuthController{
		auth:         auth,
		repo:         repo,
		cfg:          cfg,
		logger:       defLogger{},
		activitySink: noopActivitySink{},
	}

	for _, opt := range opts {
		opt(a)
	}

	a.register = NewRegisterUserHandler(repo, hasher).
		WithLogger(a.logger).
		WithActivitySink(a.activitySink)
	a.update = NewUpdateUserHandler(repo, hasher)
	a.guard = NewOwnershipGuard(cfg.GetContextKey()).
		WithLogger(a.logger).
		WithActivitySink(a.activitySink)
	a.protected = a.ProtectedRoute()

	return a
}

// ProtectedRoute returns the bearer token middleware
func (a *AuthController) ProtectedRoute() fiber.Handler {
	return jwtware.New(jwtware.Config{
		ContextKey:  a.contextKey(),
		TokenLookup: a.cfg.GetTokenLookup(),
		AuthScheme:  a.cfg.GetAuthScheme(),
		Resolver: jwtware.PrincipalResolverFunc(func(ctx context.Context, raw string) (any, error) {
			user, err := a.auth.PrincipalFromToken(ctx, raw)
			if err != nil {
				return nil, err
			}
			return user, nil
		}),
		ContextEnricher: func(ctx context.Context, principal any) context.Context {
			if user, ok := principal.(*User); ok {
				return WithContext(ctx, user)
			}
			return ctx
		},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if errors.Is(err, jwtware.ErrJWTMissingOrMalformed) {
				return ErrTokenInvalid.Wrap(err)
			}
			return err
		},
	})
}

// RegisterOperationalRoutes mounts the unauthenticated service routes
func (a *AuthController) RegisterOperationalRoutes(r router.Router[*fiber.App]) {
	r.Get("/", a.Index).SetName("index")
	r.Get("/healthz", a.Health).SetName("health")
}

// RegisterRoutes mounts the account and project routes on r
func (a *AuthController) RegisterRoutes(r fiber.Router) {
	owner := a.guard.RequireOwner("ID")

	r.Post("/login", a.LoginPost)
	r.Get("/checktoken", a.protected, a.CheckToken)

	users := r.Group("/users")
	users.Post("/register", a.RegistrationCreate)
	users.Get("/:ID", a.protected, owner, a.UserShow)
	users.Put("/:ID", a.protected, owner, a.UserUpdate)
	users.Delete("/:ID", a.protected, owner, a.UserDelete)

	users.Get("/:ID/projects", a.protected, owner, a.ProjectList)
	users.Post("/:ID/projects", a.protected, owner, a.ProjectCreate)
	users.Get("/:ID/projects/:ProjectID", a.protected, owner, a.ProjectShow)
	users.Put("/:ID/projects/:ProjectID", a.protected, owner, a.ProjectUpdate)
	users.Delete("/:ID/projects/:ProjectID", a.protected, owner, a.ProjectDelete)
}

func (a *AuthController) Index(c router.Context) error {
	c.SetHeader(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	return c.Send([]byte(IndexBanner))
}

// LoginPost accepts the credentials as JSON, form values or query string.
// Every failure is the same 400.
func (a *AuthController) LoginPost(c *fiber.Ctx) error {
	req := LoginRequest{}
	if len(c.Body()) > 0 {
		_ = c.BodyParser(&req)
	}
	if req.Email == "" && req.Password == "" {
		_ = c.QueryParser(&req)
	}

	if err := req.Validate(); err != nil {
		return ErrInvalidCredentials
	}

	res, err := a.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(LoginResponse{
		User:  res.User.Public(),
		Token: res.Token,
	})
}

func (a *AuthController) CheckToken(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).SendString("valid")
}

func (a *AuthController) RegistrationCreate(c *fiber.Ctx) error {
	payload := RegistrationCreatePayload{}
	if err := c.BodyParser(&payload); err != nil {
		return ErrBadRequest.Wrap(err)
	}
	payload.Normalize()

	redacted := payload
	redacted.Password = "********"
	a.logger.Debug("registration payload", "payload", print.MaybePrettyJSON(redacted))

	if err := payload.Validate(); err != nil {
		return AsValidationError(err)
	}

	user, err := a.register.Execute(c.UserContext(), RegisterUserMessageFromPayload(payload, a.cfg.GetUseHashid()))
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(user)
}

func (a *AuthController) UserShow(c *fiber.Ctx) error {
	user, err := a.repo.Users().GetWithProjects(c.UserContext(), c.Params("ID"))
	if err != nil {
		return err
	}
	return c.JSON(user)
}

func (a *AuthController) UserUpdate(c *fiber.Ctx) error {
	payload := UserUpdatePayload{}
	if err := c.BodyParser(&payload); err != nil {
		return ErrBadRequest.Wrap(err)
	}

	if err := payload.Validate(); err != nil {
		return AsValidationError(err)
	}

	user, err := a.update.Execute(c.UserContext(), UpdateUserMessage{
		UserID:  c.Params("ID"),
		Payload: payload,
	})
	if err != nil {
		return err
	}

	return c.JSON(user)
}

func (a *AuthController) UserDelete(c *fiber.Ctx) error {
	principal, ok := PrincipalFromLocals(c, a.contextKey())
	if !ok {
		return ErrTokenInvalid
	}

	if err := a.repo.Users().Delete(c.UserContext(), principal.ID); err != nil {
		return err
	}

	emitActivity(c.UserContext(), a.activitySink, a.logger, ActivityEvent{
		EventType:  ActivityEventUserDeleted,
		UserID:     principal.ID.String(),
		OccurredAt: time.Now(),
	})

	return c.Status(fiber.StatusOK).SendString(principal.Email + " was deleted")
}

func (a *AuthController) ProjectList(c *fiber.Ctx) error {
	principal, ok := PrincipalFromLocals(c, a.contextKey())
	if !ok {
		return ErrTokenInvalid
	}

	records, err := a.repo.Projects().ListByOwner(c.UserContext(), principal.ID)
	if err != nil {
		return err
	}
	return c.JSON(records)
}

func (a *AuthController) ProjectCreate(c *fiber.Ctx) error {
	principal, ok := PrincipalFromLocals(c, a.contextKey())
	if !ok {
		return ErrTokenInvalid
	}

	payload := ProjectPayload{}
	if err := c.BodyParser(&payload); err != nil {
		return ErrBadRequest.Wrap(err)
	}

	if err := payload.Validate(); err != nil {
		return AsValidationError(err)
	}

	record := &Project{UserID: principal.ID}
	payload.Apply(record)

	record, err := a.repo.Projects().Create(c.UserContext(), record)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(record)
}

func (a *AuthController) ProjectShow(c *fiber.Ctx) error {
	principal, projectID, err := a.projectTarget(c)
	if err != nil {
		return err
	}

	record, err := a.repo.Projects().Get(c.UserContext(), principal.ID, projectID)
	if err != nil {
		return err
	}
	return c.JSON(record)
}

func (a *AuthController) ProjectUpdate(c *fiber.Ctx) error {
	principal, projectID, err := a.projectTarget(c)
	if err != nil {
		return err
	}

	payload := ProjectPayload{}
	if err := c.BodyParser(&payload); err != nil {
		return ErrBadRequest.Wrap(err)
	}

	if err := payload.Validate(); err != nil {
		return AsValidationError(err)
	}

	record := &Project{ID: projectID, UserID: principal.ID}
	payload.Apply(record)

	record, err = a.repo.Projects().Update(c.UserContext(), record)
	if err != nil {
		return err
	}
	return c.JSON(record)
}

func (a *AuthController) ProjectDelete(c *fiber.Ctx) error {
	principal, projectID, err := a.projectTarget(c)
	if err != nil {
		return err
	}

	if err := a.repo.Projects().Delete(c.UserContext(), principal.ID, projectID); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Health reports whether the store answers
func (a *AuthController) Health(c router.Context) error {
	ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
	defer cancel()

	if err := a.repo.Ping(ctx); err != nil {
		a.logger.Error("health check failed", "error", err)
		return c.JSON(fiber.StatusServiceUnavailable, fiber.Map{"status": "unavailable"})
	}
	return c.JSON(fiber.StatusOK, fiber.Map{"status": "ok"})
}

func (a *AuthController) projectTarget(c *fiber.Ctx) (*User, uuid.UUID, error) {
	principal, ok := PrincipalFromLocals(c, a.contextKey())
	if !ok {
		return nil, uuid.Nil, ErrTokenInvalid
	}

	projectID, err := uuid.Parse(c.Params("ProjectID"))
	if err != nil {
		return nil, uuid.Nil, ErrRecordNotFound.Wrap(err)
	}
	return principal, projectID, nil
}

func (a *AuthController) contextKey() string {
	if key := a.cfg.GetContextKey(); key != "" {
		return key
	}
	return DefaultContextKey
}
