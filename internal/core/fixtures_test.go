package core

import "github.com/shopspring/decimal"

func ptr(v int64) *int64 { return &v }

func amount(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

// fixture builds two companies: company 1 has an admin, manager M with
// subordinates E1 and E2, and E3 who reports to nobody; company 2 has its
// own admin and employee.
func fixture() ([]User, []Expense) {
	users := []User{
		{ID: 1, Name: "Admin One", Role: RoleAdmin, CompanyID: 1},
		{ID: 2, Name: "Manager M", Role: RoleManager, CompanyID: 1},
		{ID: 3, Name: "E1", Role: RoleEmployee, CompanyID: 1, ManagerID: ptr(2)},
		{ID: 4, Name: "E2", Role: RoleEmployee, CompanyID: 1, ManagerID: ptr(2)},
		{ID: 5, Name: "E3", Role: RoleEmployee, CompanyID: 1},
		{ID: 6, Name: "Admin Two", Role: RoleAdmin, CompanyID: 2},
		{ID: 7, Name: "F1", Role: RoleEmployee, CompanyID: 2},
	}
	expenses := []Expense{
		{ID: 1, EmployeeID: 3, CompanyID: 1, Amount: amount("10.10"), Currency: "USD", Category: CategoryTravel, Date: NewDate(2025, 10, 3), Status: StatusPending},
		{ID: 2, EmployeeID: 4, CompanyID: 1, Amount: amount("20.20"), Currency: "USD", Category: CategoryFood, Date: NewDate(2025, 9, 14), Status: StatusApproved},
		{ID: 3, EmployeeID: 5, CompanyID: 1, Amount: amount("0.30"), Currency: "USD", Category: CategoryTravel, Date: NewDate(2025, 10, 20), Status: StatusRejected},
		{ID: 4, EmployeeID: 7, CompanyID: 2, Amount: amount("99.99"), Currency: "EUR", Category: CategoryOffice, Date: NewDate(2025, 10, 1), Status: StatusPending},
		{ID: 5, EmployeeID: 1, CompanyID: 1, Amount: amount("5"), Currency: "USD", Category: CategoryOther, Date: NewDate(2024, 12, 31), Status: StatusPending},
		{ID: 6, EmployeeID: 3, CompanyID: 1, Amount: amount("1.11"), Currency: "USD", Category: CategoryFood, Date: NewDate(2025, 1, 2), Status: StatusApproved},
	}
	return users, expenses
}

func userByID(users []User, id int64) User {
	for _, u := range users {
		if u.ID == id {
			return u
		}
	}
	panic("no such user")
}

func ids(expenses []Expense) []int64 {
	out := make([]int64, 0, len(expenses))
	for _, e := range expenses {
		out = append(out, e.ID)
	}
	return out
}
