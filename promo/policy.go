/*
policy.go - Authorization predicates for promo operations

PURPOSE:
  Pure decision functions over (caller, promo). No storage access, no
  HTTP knowledge. The façade calls these after authenticating the caller
  and (for single-resource operations) after loading the promo.

RULES:
  - Create, list-all, retrieve, update, delete: administrators only
  - Balance read and consume: the promo's recipient OR an administrator
  - Listing is the one exception to hard denial: non-admins get a view
    scoped to their own promos instead of a 403 (see Engine.List)

Denials surface as ErrForbidden from the façade, never as silently
empty results.
*/
package promo

// CanListAll reports whether the caller may list every promo.
// Non-admin callers still get a scoped listing; see Engine.List.
func CanListAll(caller *User) bool {
	return caller.IsAdministrator()
}

// CanCreate reports whether the caller may issue new promos.
func CanCreate(caller *User) bool {
	return caller.IsAdministrator()
}

// CanManage reports whether the caller may retrieve, update or delete
// promos. Management is admin-only and independent of the resource;
// recipients cannot manage their own promos.
func CanManage(caller *User) bool {
	return caller.IsAdministrator()
}

// CanViewBalance reports whether the caller may read remaining points or
// consume against the promo. A nil caller is denied.
func CanViewBalance(caller *User, p *Promo) bool {
	if caller == nil {
		return false
	}
	return caller.ID == p.Recipient || caller.IsAdministrator()
}
