// Package discovery infers the shape and meaning of an unknown relational
// schema: it enumerates tables, classifies their purpose from naming
// conventions, detects relationships, and maps natural-language queries onto
// the result.
package discovery

import "regexp"

// purposeEntry pairs a purpose with its name patterns. Entries are matched
// in slice order and the first hit wins, so the vocabulary must stay a slice;
// a map would randomize resolution between runs.
type purposeEntry struct {
	purpose  string
	patterns []*regexp.Regexp
}

func compileAll(tokens ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(tokens))
	for i, tok := range tokens {
		out[i] = regexp.MustCompile(tok)
	}
	return out
}

// tablePatterns classifies table names. Order matters: "user_documents"
// must resolve to employee (via "user") before document.
var tablePatterns = []purposeEntry{
	{"employee", compileAll("emp", "staff", "personnel", "worker", "employee", "user")},
	{"department", compileAll("dept", "department", "division", "team", "unit", "group")},
	{"salary", compileAll("salary", "compensation", "pay", "wage", "income", "earnings")},
	{"document", compileAll("doc", "document", "file", "resume", "review", "cv")},
	{"project", compileAll("project", "task", "assignment", "work")},
	{"leave", compileAll("leave", "vacation", "holiday", "absence")},
}

// columnPatterns names column roles. Used both for the column-based
// classification fallback and for mapping query tokens onto columns.
var columnPatterns = []purposeEntry{
	{"name", compileAll("name", "full_name", "employee_name", "staff_name", "user_name", "first_name", "last_name")},
	{"id", compileAll("id", "_id", "key", "code", "num", "number")},
	{"department", compileAll("dept", "department", "division", "team", "unit", "group")},
	{"salary", compileAll("salary", "compensation", "pay", "wage", "income", "earnings")},
	{"email", compileAll("email", "mail", "address")},
	{"phone", compileAll("phone", "telephone", "contact", "mobile")},
	{"hire_date", compileAll("hire", "join", "start", "date", "employed", "commence")},
	{"position", compileAll("position", "title", "role", "job", "designation")},
}

// employeeColumnRoles are the column roles whose presence alone implies an
// employee table when no table-name pattern matched.
var employeeColumnRoles = map[string]bool{
	"name":       true,
	"salary":     true,
	"department": true,
	"hire_date":  true,
	"email":      true,
	"phone":      true,
}

// departmentTokens are the shared tokens used for naming-convention
// relationship detection between columns and department-like tables.
var departmentTokens = []string{"dept", "department", "division", "team", "unit", "group"}

// identifierTokens mark columns worth value-sampling in the inferred
// relationship pass.
var identifierTokens = []string{"id", "key", "code"}
