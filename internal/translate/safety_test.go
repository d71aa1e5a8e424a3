package translate

import "testing"

func TestFormat(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			"uppercases keywords and caps rows",
			"select * from employees",
			"SELECT * FROM employees LIMIT 100",
		},
		{
			"collapses whitespace",
			"select  *\n\tfrom employees",
			"SELECT * FROM employees LIMIT 100",
		},
		{
			"keeps an existing limit",
			"SELECT id FROM employees LIMIT 5",
			"SELECT id FROM employees LIMIT 5",
		},
		{
			"never caps aggregates",
			"SELECT COUNT(*) AS count FROM employees",
			"SELECT COUNT(*) AS count FROM employees",
		},
		{
			"alias casing survives",
			"SELECT AVG(salary) AS average_salary FROM employees",
			"SELECT AVG(salary) AS average_salary FROM employees",
		},
		{
			"where clause keywords",
			"select id from employees where department like ?",
			"SELECT id FROM employees WHERE department LIKE ? LIMIT 100",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Format(tt.in); got != tt.want {
				t.Errorf("Format(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

// Identifiers that merely contain a keyword must not be rewritten.
func TestFormatLeavesIdentifiersAlone(t *testing.T) {
	got := Format("SELECT band, orders FROM employees LIMIT 10")
	want := "SELECT band, orders FROM employees LIMIT 10"
	if got != want {
		t.Errorf("Format = %q, want %q", got, want)
	}
}
