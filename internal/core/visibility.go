package core

// VisibleExpenses returns the subset of all that user may see, in input
// order:
//
//   - admin sees every expense of their company
//   - manager sees expenses filed by their direct subordinates
//   - employee sees their own expenses
//
// Any other role sees nothing.
func VisibleExpenses(all []Expense, user User, users []User) []Expense {
	var keep func(Expense) bool

	switch user.Role {
	case RoleAdmin:
		keep = func(e Expense) bool { return e.CompanyID == user.CompanyID }
	case RoleManager:
		subordinates := Subordinates(user, users)
		ids := make(map[int64]struct{}, len(subordinates))
		for _, u := range subordinates {
			ids[u.ID] = struct{}{}
		}
		keep = func(e Expense) bool {
			_, ok := ids[e.EmployeeID]
			return ok && e.CompanyID == user.CompanyID
		}
	case RoleEmployee:
		keep = func(e Expense) bool { return e.EmployeeID == user.ID }
	default:
		return []Expense{}
	}

	out := make([]Expense, 0, len(all))
	for _, e := range all {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}

// Subordinates lists the users of manager's company that report to them.
func Subordinates(manager User, users []User) []User {
	var out []User
	for _, u := range users {
		if u.CompanyID == manager.CompanyID && u.ReportsTo(manager.ID) {
			out = append(out, u)
		}
	}
	return out
}

// CanSee reports whether user may see the expense with the given id.
func CanSee(user User, users []User, all []Expense, id int64) bool {
	for _, e := range VisibleExpenses(all, user, users) {
		if e.ID == id {
			return true
		}
	}
	return false
}
