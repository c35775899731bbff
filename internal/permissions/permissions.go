// Package permissions defines the action:resource tokens granted to API keys
// and the declarative mapping from HTTP verbs to required tokens. Routes
// declare their resource at registration time; nothing is inferred from the
// request path.
package permissions

import "net/http"

type Permission string

// None means the route declares no permission requirement. API-key callers
// are rejected on such routes (fail closed).
const None Permission = ""

const (
	AdminAll Permission = "admin:all"

	ActionRead   = "read"
	ActionWrite  = "write"
	ActionDelete = "delete"
)

// Resources API keys can be scoped to.
const (
	ResourcePages      = "pages"
	ResourceSections   = "sections"
	ResourceNavigation = "navigation"
	ResourceBranding   = "branding"
	ResourceUsers      = "users"
	ResourceWebhooks   = "webhooks"
	ResourceAPIKeys    = "apikeys"
	ResourceTenants    = "tenants"
)

var resources = []string{
	ResourcePages,
	ResourceSections,
	ResourceNavigation,
	ResourceBranding,
	ResourceUsers,
	ResourceWebhooks,
	ResourceAPIKeys,
	ResourceTenants,
}

var actions = []string{ActionRead, ActionWrite, ActionDelete}

// All enumerates every grantable permission token, wildcards included.
func All() []string {
	out := []string{string(AdminAll)}
	for _, action := range actions {
		out = append(out, action+":*")
		for _, resource := range resources {
			out = append(out, action+":"+resource)
		}
	}
	return out
}

// Valid reports whether token is a grantable permission.
func Valid(token string) bool {
	for _, p := range All() {
		if p == token {
			return true
		}
	}
	return false
}

// Required maps an HTTP method and a declared resource to the permission a
// key must hold. Unknown methods and empty resources yield None.
func Required(method, resource string) Permission {
	if resource == "" {
		return None
	}

	var action string
	switch method {
	case http.MethodGet:
		action = ActionRead
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		action = ActionWrite
	case http.MethodDelete:
		action = ActionDelete
	default:
		return None
	}

	return Permission(action + ":" + resource)
}

// Has reports whether the granted set satisfies required, honoring the
// admin-all grant and per-action wildcards.
func (required Permission) Has(granted []string) bool {
	if required == None {
		return false
	}

	action := required.action()
	for _, g := range granted {
		if g == string(required) || g == string(AdminAll) {
			return true
		}
		if action != "" && g == action+":*" {
			return true
		}
	}
	return false
}

func (p Permission) action() string {
	for i := 0; i < len(p); i++ {
		if p[i] == ':' {
			return string(p[:i])
		}
	}
	return ""
}
