package permissions

import "github.com/mdnaeem95/halaltech/internal/models"

// Default is the registry used by the API.
var Default = mustDefaultRegistry()

func mustDefaultRegistry() *Registry {
	r := NewRegistry()
	perms := []*Permission{
		{ID: "catalog.view", Module: "catalog", Description: "Browse services and packages"},
		{ID: "catalog.manage", Module: "catalog", DependsOn: []string{"catalog.view"}, Description: "Create and edit services and packages"},
		{ID: "project.view", Module: "projects", Description: "View visible projects"},
		{ID: "project.create", Module: "projects", DependsOn: []string{"project.view"}, Description: "Submit project inquiries"},
		{ID: "project.manage", Module: "projects", DependsOn: []string{"project.view"}, Description: "Change project status and assignments"},
		{ID: "quote.view", Module: "quotes", DependsOn: []string{"project.view"}, Description: "View project quotes"},
		{ID: "quote.respond", Module: "quotes", DependsOn: []string{"quote.view"}, Description: "Accept or reject quotes"},
		{ID: "quote.manage", Module: "quotes", DependsOn: []string{"quote.view"}, Description: "Issue quotes"},
		{ID: "invoice.view", Module: "invoices", DependsOn: []string{"project.view"}, Description: "View invoices"},
		{ID: "invoice.manage", Module: "invoices", DependsOn: []string{"invoice.view"}, Description: "Create and update invoices"},
		{ID: "message.view", Module: "messages", DependsOn: []string{"project.view"}, Description: "Read project messages"},
		{ID: "message.send", Module: "messages", DependsOn: []string{"message.view"}, Description: "Post project messages"},
		{ID: "freelancer.onboard", Module: "freelancers", Description: "Submit a freelancer profile"},
		{ID: "application.review", Module: "freelancers", Description: "Approve or reject freelancer applications"},
		{ID: "marketplace.seed", Module: "freelancers", DependsOn: []string{"application.review"}, Description: "Load sample freelancers"},
		{ID: "profile.manage", Module: "core", Description: "Change roles and account state of other profiles"},
		{ID: "audit.view", Module: "core", Description: "View audit logs"},
		{ID: "dashboard.client", Module: "dashboard", Description: "View the client dashboard"},
		{ID: "dashboard.admin", Module: "dashboard", Implies: []string{"audit.view"}, Description: "View platform-wide dashboard"},
	}
	for _, perm := range perms {
		if err := r.Register(perm); err != nil {
			panic(err)
		}
	}
	if err := r.Validate(); err != nil {
		panic(err)
	}

	grants := map[string][]string{
		models.RoleClient: {
			"catalog.view", "project.view", "project.create",
			"quote.view", "quote.respond", "invoice.view",
			"message.view", "message.send", "dashboard.client",
		},
		models.RoleServiceProvider: {
			"catalog.view", "project.view", "message.view",
			"message.send", "freelancer.onboard",
		},
	}
	for role, ids := range grants {
		if err := r.Grant(role, ids...); err != nil {
			panic(err)
		}
	}
	return r
}
