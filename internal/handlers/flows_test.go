package handlers_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mdnaeem95/halaltech/internal/handlers/testutil"
	"github.com/mdnaeem95/halaltech/internal/models"
	"github.com/mdnaeem95/halaltech/internal/services"
)

type servicePayload struct {
	ID           string           `json:"id"`
	Slug         string           `json:"slug"`
	BasePrice    *float64         `json:"base_price"`
	IsActive     bool             `json:"is_active"`
	PriceDisplay string           `json:"price_display"`
	Packages     []packagePayload `json:"packages"`
}

type packagePayload struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

type projectPayload struct {
	ID          string   `json:"id"`
	ClientID    string   `json:"client_id"`
	Status      string   `json:"status"`
	QuotedPrice *float64 `json:"quoted_price"`
}

type invoicePayload struct {
	ID            string     `json:"id"`
	ProjectID     string     `json:"project_id"`
	InvoiceNumber string     `json:"invoice_number"`
	Amount        float64    `json:"amount"`
	TaxAmount     float64    `json:"tax_amount"`
	TotalAmount   float64    `json:"total_amount"`
	Status        string     `json:"status"`
	PaidAt        *time.Time `json:"paid_at"`
}

type quoteResponsePayload struct {
	Project projectPayload  `json:"project"`
	Invoice *invoicePayload `json:"invoice"`
}

func findService(t *testing.T, env *testutil.Env, slug string) servicePayload {
	t.Helper()
	return testutil.MustData[servicePayload](t, env.Request(http.MethodGet, "/api/services/"+slug, nil, ""), http.StatusOK)
}

func createProject(t *testing.T, env *testutil.Env, client testutil.Session, body map[string]any) projectPayload {
	t.Helper()
	return testutil.MustData[projectPayload](t, env.Request(http.MethodPost, "/api/projects", body, client.Token), http.StatusCreated)
}

func TestCatalogIsPublicAndShowsCustomPricing(t *testing.T) {
	env := testutil.NewEnv(t)

	list := testutil.MustData[[]servicePayload](t, env.Request(http.MethodGet, "/api/services", nil, ""), http.StatusOK)
	require.Len(t, list, 5)

	consulting := findService(t, env, "it-consulting")
	require.Nil(t, consulting.BasePrice)
	require.Equal(t, models.CustomPricingLabel, consulting.PriceDisplay)

	web := findService(t, env, "website-development")
	require.Len(t, web.Packages, 3)
	require.Equal(t, "From $1500.00", web.PriceDisplay)

	packages := testutil.MustData[[]packagePayload](t, env.Request(http.MethodGet, "/api/services/"+web.ID+"/packages", nil, ""), http.StatusOK)
	require.Len(t, packages, 3)
	require.LessOrEqual(t, packages[0].Price, packages[1].Price)
}

func TestCatalogManagementRequiresAdmin(t *testing.T) {
	env := testutil.NewEnv(t)
	client := env.Client()
	admin := env.Admin()

	body := map[string]any{"name": "Cloud Hosting", "category": "infrastructure", "description": "Managed hosting"}
	w := env.Request(http.MethodPost, "/api/admin/services", body, client.Token)
	require.Equal(t, "FORBIDDEN", testutil.ErrorCode(t, w, http.StatusForbidden))

	created := testutil.MustData[servicePayload](t, env.Request(http.MethodPost, "/api/admin/services", body, admin.Token), http.StatusCreated)
	require.Equal(t, "cloud-hosting", created.Slug)

	w = env.Request(http.MethodDelete, "/api/admin/services/"+created.ID, nil, admin.Token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	public := testutil.MustData[[]servicePayload](t, env.Request(http.MethodGet, "/api/services?include_inactive=true", nil, ""), http.StatusOK)
	for _, svc := range public {
		require.True(t, svc.IsActive, svc.Slug)
	}

	all := testutil.MustData[[]servicePayload](t, env.Request(http.MethodGet, "/api/services?include_inactive=true", nil, admin.Token), http.StatusOK)
	require.Len(t, all, len(public)+1)
}

func TestQuoteAcceptanceIssuesInvoice(t *testing.T) {
	env := testutil.NewEnv(t)
	client := env.Client()
	admin := env.Admin()

	web := findService(t, env, "website-development")
	project := createProject(t, env, client, map[string]any{
		"title":       "Halal bakery storefront",
		"description": "Online ordering for a neighbourhood bakery",
		"service_id":  web.ID,
		"package_id":  web.Packages[0].ID,
	})
	require.Equal(t, string(models.ProjectInquiry), project.Status)

	// Without an amount the package price is quoted.
	w := env.Request(http.MethodPost, "/api/projects/"+project.ID+"/quote", map[string]any{"payment_terms": "50% upfront"}, admin.Token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = env.Request(http.MethodPost, "/api/projects/"+project.ID+"/quote", map[string]any{"amount": 10}, admin.Token)
	require.Equal(t, "INVALID_PROJECT_STATUS", testutil.ErrorCode(t, w, http.StatusConflict))

	accepted := testutil.MustData[quoteResponsePayload](t,
		env.Request(http.MethodPatch, "/api/projects/"+project.ID+"/quote", map[string]any{"action": "accept"}, client.Token),
		http.StatusOK)
	require.Equal(t, string(models.ProjectInProgress), accepted.Project.Status)
	require.NotNil(t, accepted.Invoice)
	require.InDelta(t, 1500, accepted.Invoice.Amount, 0.001)
	require.InDelta(t, 135, accepted.Invoice.TaxAmount, 0.001)
	require.InDelta(t, 1635, accepted.Invoice.TotalAmount, 0.001)
	require.Equal(t, models.InvoicePending, accepted.Invoice.Status)

	w = env.Request(http.MethodPatch, "/api/projects/"+project.ID+"/quote", map[string]any{"action": "reject"}, client.Token)
	require.Equal(t, "QUOTE_ALREADY_RESPONDED", testutil.ErrorCode(t, w, http.StatusConflict))

	invoices := testutil.MustData[[]invoicePayload](t, env.Request(http.MethodGet, "/api/invoices", nil, client.Token), http.StatusOK)
	require.Len(t, invoices, 1)

	paid := testutil.MustData[invoicePayload](t,
		env.Request(http.MethodPatch, "/api/invoices/"+accepted.Invoice.ID, map[string]any{"status": "paid", "payment_method": "paynow"}, admin.Token),
		http.StatusOK)
	require.Equal(t, models.InvoicePaid, paid.Status)
	require.NotNil(t, paid.PaidAt)

	w = env.Request(http.MethodPatch, "/api/invoices/"+accepted.Invoice.ID, map[string]any{"status": "cancelled"}, admin.Token)
	require.Equal(t, "INVALID_INVOICE_TRANSITION", testutil.ErrorCode(t, w, http.StatusConflict))

	w = env.Request(http.MethodPatch, "/api/invoices/"+accepted.Invoice.ID, map[string]any{"status": "paid"}, client.Token)
	require.Equal(t, http.StatusForbidden, w.Code, w.Body.String())
}

func TestQuoteRejectionReturnsProjectToInquiry(t *testing.T) {
	env := testutil.NewEnv(t)
	client := env.Client()
	admin := env.Admin()

	project := createProject(t, env, client, map[string]any{"title": "Consulting", "description": "Cloud migration plan"})

	w := env.Request(http.MethodPost, "/api/projects/"+project.ID+"/quote", map[string]any{}, admin.Token)
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

	w = env.Request(http.MethodPost, "/api/projects/"+project.ID+"/quote", map[string]any{
		"amount":       2400,
		"deliverables": []string{"Assessment", "Roadmap"},
	}, admin.Token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	rejected := testutil.MustData[quoteResponsePayload](t,
		env.Request(http.MethodPatch, "/api/projects/"+project.ID+"/quote", map[string]any{"action": "reject", "reason": "Over budget"}, client.Token),
		http.StatusOK)
	require.Equal(t, string(models.ProjectInquiry), rejected.Project.Status)
	require.Nil(t, rejected.Invoice)

	// A rejected quote may be reissued.
	w = env.Request(http.MethodPost, "/api/projects/"+project.ID+"/quote", map[string]any{"amount": 1800, "deliverables": []string{"Roadmap"}}, admin.Token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestProjectVisibilityAndTransitions(t *testing.T) {
	env := testutil.NewEnv(t)
	owner := env.Client()
	other := env.Client()
	admin := env.Admin()

	project := createProject(t, env, owner, map[string]any{"title": "Brand refresh", "description": "Logo and palette"})

	w := env.Request(http.MethodGet, "/api/projects/"+project.ID, nil, other.Token)
	require.Equal(t, http.StatusNotFound, w.Code, w.Body.String())

	mine := testutil.MustData[[]projectPayload](t, env.Request(http.MethodGet, "/api/projects", nil, other.Token), http.StatusOK)
	require.Empty(t, mine)

	w = env.Request(http.MethodPatch, "/api/projects/"+project.ID+"/status", map[string]any{"status": "completed"}, admin.Token)
	require.Equal(t, "INVALID_STATUS_TRANSITION", testutil.ErrorCode(t, w, http.StatusConflict))

	w = env.Request(http.MethodPatch, "/api/projects/"+project.ID+"/status", map[string]any{"status": "shipped"}, admin.Token)
	require.Equal(t, "VALIDATION_FAILED", testutil.ErrorCode(t, w, http.StatusBadRequest))

	w = env.Request(http.MethodPatch, "/api/projects/"+project.ID+"/status", map[string]any{"status": "quoted"}, owner.Token)
	require.Equal(t, http.StatusForbidden, w.Code, w.Body.String())

	cancelled := testutil.MustData[projectPayload](t, env.Request(http.MethodPost, "/api/projects/"+project.ID+"/cancel", nil, owner.Token), http.StatusOK)
	require.Equal(t, string(models.ProjectCancelled), cancelled.Status)

	w = env.Request(http.MethodPatch, "/api/projects/"+project.ID+"/status", map[string]any{"status": "inquiry"}, admin.Token)
	require.Equal(t, "INVALID_STATUS_TRANSITION", testutil.ErrorCode(t, w, http.StatusConflict))
}

func TestProjectMessagesNotifyParticipants(t *testing.T) {
	env := testutil.NewEnv(t)
	client := env.Client()
	admin := env.Admin()

	project := createProject(t, env, client, map[string]any{"title": "Menu app", "description": "Ordering app"})

	w := env.Request(http.MethodPost, "/api/projects/"+project.ID+"/messages", map[string]any{"message": "Can we start next week?"}, client.Token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = env.Request(http.MethodPost, "/api/projects/"+project.ID+"/messages", map[string]any{"message": "Yes, Monday works."}, admin.Token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	messages := testutil.MustData[[]models.ProjectMessage](t, env.Request(http.MethodGet, "/api/projects/"+project.ID+"/messages", nil, client.Token), http.StatusOK)
	require.Len(t, messages, 2)
	require.Equal(t, "Can we start next week?", messages[0].Message)

	type notificationList struct {
		Items  []services.NotificationDTO `json:"items"`
		Unread int64                      `json:"unread"`
	}
	inbox := testutil.MustData[notificationList](t, env.Request(http.MethodGet, "/api/notifications?unread=true", nil, client.Token), http.StatusOK)
	require.NotEmpty(t, inbox.Items)
	require.EqualValues(t, len(inbox.Items), inbox.Unread)

	w = env.Request(http.MethodPost, "/api/notifications/read-all", nil, client.Token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	inbox = testutil.MustData[notificationList](t, env.Request(http.MethodGet, "/api/notifications?unread=true", nil, client.Token), http.StatusOK)
	require.Empty(t, inbox.Items)
	require.Zero(t, inbox.Unread)
}

func TestDashboardsAreRoleScoped(t *testing.T) {
	env := testutil.NewEnv(t)
	client := env.Client()
	admin := env.Admin()
	createProject(t, env, client, map[string]any{"title": "Landing page", "description": "Single page"})

	w := env.Request(http.MethodGet, "/api/admin/dashboard", nil, client.Token)
	require.Equal(t, http.StatusForbidden, w.Code, w.Body.String())

	w = env.Request(http.MethodGet, "/api/admin/dashboard", nil, admin.Token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.Request(http.MethodGet, "/api/dashboard", nil, client.Token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.Request(http.MethodGet, "/api/admin/audit?action=project.create", nil, admin.Token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := testutil.DecodeResponse(t, w)
	require.NotNil(t, resp.Meta)
	require.GreaterOrEqual(t, resp.Meta.Total, 1)
}

type securityAuditPayload struct {
	Checks []struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	} `json:"checks"`
	Summary map[string]int `json:"summary"`
}

func TestSecurityAuditRequiresAdmin(t *testing.T) {
	env := testutil.NewEnv(t)
	client := env.Client()
	admin := env.Admin()

	w := env.Request(http.MethodGet, "/api/admin/security/audit", nil, client.Token)
	require.Equal(t, http.StatusForbidden, w.Code, w.Body.String())

	result := testutil.MustData[securityAuditPayload](t, env.Request(http.MethodGet, "/api/admin/security/audit", nil, admin.Token), http.StatusOK)

	statuses := make(map[string]string, len(result.Checks))
	for _, check := range result.Checks {
		statuses[check.ID] = check.Status
	}
	require.Equal(t, "pass", statuses["admin_present"])
	require.Equal(t, "pass", statuses["csrf_protection"])
	// The suite secret is long enough to sign but below the recommended length.
	require.Equal(t, "warn", statuses["jwt_secret_strength"])
	require.Equal(t, "warn", statuses["mail_delivery"])
	require.Equal(t, len(result.Checks), result.Summary["pass"]+result.Summary["warn"]+result.Summary["fail"])
}
