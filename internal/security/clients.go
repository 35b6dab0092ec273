package security

// In-memory API client registry (replace with DB/config later)
type Client struct {
	ID      string
	Secret  string
	Perms   []string // e.g. {"orders.read","orders.write"}
	Enabled bool
}

var Clients = map[string]Client{
	"storefront-web": {
		ID:      "storefront-web",
		Secret:  "storefront-web-secret",
		Perms:   []string{"orders.read", "orders.write", "payments.read", "payments.write", "coupons.read"},
		Enabled: true,
	},
	"admin-dashboard": {
		ID:     "admin-dashboard",
		Secret: "admin-dashboard-secret",
		Perms: []string{
			"orders.read", "orders.write", "orders.admin",
			"payments.read", "payments.write",
			"coupons.read", "coupons.write",
			"catalog.write",
		},
		Enabled: true,
	},
	"svc-analytics": {
		ID:      "svc-analytics",
		Secret:  "ana-secret",
		Perms:   []string{"orders.read"},
		Enabled: true,
	},
}
