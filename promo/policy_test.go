package promo_test

import (
	"testing"

	"github.com/loyaltyworks/promo-ledger/promo"
)

func TestIsAdministrator(t *testing.T) {
	tests := []struct {
		name  string
		user  promo.User
		admin bool
	}{
		{"plain user", promo.User{ID: "u1"}, false},
		{"staff", promo.User{ID: "u1", Staff: true}, true},
		{"superuser", promo.User{ID: "u1", Superuser: true}, true},
		{"staff and superuser", promo.User{ID: "u1", Staff: true, Superuser: true}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.user.IsAdministrator(); got != tt.admin {
				t.Errorf("IsAdministrator() = %v, want %v", got, tt.admin)
			}
		})
	}
}

func TestIsAdministrator_NilUser(t *testing.T) {
	var u *promo.User
	if u.IsAdministrator() {
		t.Error("a nil user must not be an administrator")
	}
}

func TestManagementPredicates(t *testing.T) {
	admin := &promo.User{ID: "boss", Staff: true}
	user := &promo.User{ID: "u1"}

	if !promo.CanCreate(admin) || !promo.CanManage(admin) || !promo.CanListAll(admin) {
		t.Error("admins must be able to create, manage and list all promos")
	}
	if promo.CanCreate(user) || promo.CanManage(user) || promo.CanListAll(user) {
		t.Error("non-admins must not create, manage or list all promos")
	}
	if promo.CanCreate(nil) || promo.CanManage(nil) || promo.CanListAll(nil) {
		t.Error("anonymous callers have no management rights")
	}
}

func TestCanViewBalance(t *testing.T) {
	p := &promo.Promo{ID: "p1", Recipient: "u1"}

	tests := []struct {
		name   string
		caller *promo.User
		want   bool
	}{
		{"recipient", &promo.User{ID: "u1"}, true},
		{"admin", &promo.User{ID: "boss", Superuser: true}, true},
		{"stranger", &promo.User{ID: "u2"}, false},
		{"anonymous", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := promo.CanViewBalance(tt.caller, p); got != tt.want {
				t.Errorf("CanViewBalance() = %v, want %v", got, tt.want)
			}
		})
	}
}
