package sqlguard

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/shopqa/shopqa/internal/apperr"
)

func TestClean(t *testing.T) {
	cases := map[string]string{
		"SELECT 1;":              "SELECT 1",
		"  SELECT 1 ;  ; \n":     "SELECT 1",
		"SELECT ';' AS x;;":      "SELECT ';' AS x",
		"":                       "",
		";":                      "",
		"\tselect * from t\n":    "select * from t",
		"SELECT 1; DROP TABLE t": "SELECT 1; DROP TABLE t",
	}
	for input, want := range cases {
		if got := Clean(input); got != want {
			t.Fatalf("Clean(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestCleanIsIdempotent(t *testing.T) {
	inputs := []string{
		"SELECT 1;", " ; ;", "SELECT 1 ;\n;", "", "   ", "SELECT x FROM t LIMIT 5 ;", ";;SELECT;;", "a ; ",
	}
	for _, input := range inputs {
		once := Clean(input)
		if twice := Clean(once); twice != once {
			t.Fatalf("Clean(Clean(%q)) = %q, Clean = %q", input, twice, once)
		}
	}
}

func TestStripPagination(t *testing.T) {
	cases := map[string]string{
		"SELECT * FROM customers LIMIT 25 OFFSET 50":           "SELECT * FROM customers",
		"SELECT * FROM customers limit 5;":                     "SELECT * FROM customers",
		"SELECT * FROM customers LIMIT 10, 5":                  "SELECT * FROM customers",
		"SELECT * FROM customers":                              "SELECT * FROM customers",
		"SELECT * FROM (SELECT * FROM t LIMIT 3) AS s":         "SELECT * FROM (SELECT * FROM t LIMIT 3) AS s",
		"SELECT credit_limit FROM accounts ORDER BY 1 LIMIT 2": "SELECT credit_limit FROM accounts ORDER BY 1",
	}
	for input, want := range cases {
		if got := StripPagination(input); got != want {
			t.Fatalf("StripPagination(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestPaginate(t *testing.T) {
	if got := Paginate("SELECT * FROM customers;", 25, 50); got != "SELECT * FROM customers\nLIMIT 25 OFFSET 50" {
		t.Fatalf("Paginate() = %q", got)
	}
	if got := Paginate("SELECT * FROM customers LIMIT 5", 25, 0); got != "SELECT * FROM customers LIMIT 5" {
		t.Fatalf("Paginate() with existing limit = %q", got)
	}
	if got := Paginate("SELECT credit_limit FROM t", 25, 0); got != "SELECT credit_limit FROM t\nLIMIT 25 OFFSET 0" {
		t.Fatalf("Paginate() with limit-like column = %q", got)
	}
}

func TestCountSQL(t *testing.T) {
	got := CountSQL("SELECT state FROM customers LIMIT 5 OFFSET 10;")
	if got != "SELECT COUNT(*) FROM (SELECT state FROM customers\n) AS total" {
		t.Fatalf("CountSQL() = %q", got)
	}
}

func TestValidateAcceptsSelect(t *testing.T) {
	for _, input := range []string{
		"SELECT 1",
		"select * from customers;",
		"  Select\n name FROM t ;",
		"SELECT ';' AS semi FROM t",
		"SELECT 1 -- trailing; comment",
		"SELECT(1)",
	} {
		got, err := Validate(input)
		if err != nil {
			t.Fatalf("Validate(%q) error = %v", input, err)
		}
		if got != Clean(input) {
			t.Fatalf("Validate(%q) = %q, want %q", input, got, Clean(input))
		}
	}
}

func TestValidateRejects(t *testing.T) {
	for _, input := range []string{
		"",
		"   ;",
		"INSERT INTO t VALUES (1)",
		"update t set x = 1",
		"DELETE FROM t",
		"drop table customers",
		"ATTACH DATABASE 'x.db' AS x",
		"WITH x AS (SELECT 1) SELECT * FROM x",
		"SELECT 1; DROP TABLE customers",
		"select 1;delete from t",
		"SELECT 1; SELECT 2;",
		"SELECTED FROM t",
		"(SELECT 1)",
	} {
		_, err := Validate(input)
		if err == nil {
			t.Fatalf("Validate(%q) expected error", input)
		}
		if !apperr.Is(err, apperr.UnsafeQuery) {
			t.Fatalf("Validate(%q) kind = %q", input, apperr.KindOf(err))
		}
	}
}

func TestValidateIsDeterministic(t *testing.T) {
	for i := 0; i < 3; i++ {
		if _, err := Validate("DrOp TABLE orders"); err == nil {
			t.Fatal("expected rejection")
		}
	}
}

func TestTrailingLineCommentKeepsPagination(t *testing.T) {
	stmt, err := Validate("SELECT * FROM customers ORDER BY customer_id -- every customer")
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if HasLimit(stmt) {
		t.Fatal("HasLimit() = true for a statement without LIMIT")
	}
	want := "SELECT * FROM customers ORDER BY customer_id -- every customer\nLIMIT 25 OFFSET 25"
	if got := Paginate(stmt, 25, 25); got != want {
		t.Fatalf("Paginate() = %q, want %q", got, want)
	}
	want = "SELECT COUNT(*) FROM (SELECT * FROM customers ORDER BY customer_id -- every customer\n) AS total"
	if got := CountSQL(stmt); got != want {
		t.Fatalf("CountSQL() = %q, want %q", got, want)
	}
}

func TestLimitInsideLiteralsAndComments(t *testing.T) {
	cases := map[string]bool{
		"SELECT * FROM t WHERE note = 'no limit here'": false,
		"SELECT * FROM t /* limit 5 */":                 false,
		"SELECT * FROM t -- limit 5":                    false,
		"SELECT * FROM t LIMIT 5 -- first five":         true,
		"SELECT \"limit\" FROM t":                       false,
	}
	for input, want := range cases {
		if got := HasLimit(input); got != want {
			t.Fatalf("HasLimit(%q) = %v, want %v", input, got, want)
		}
	}

	strip := map[string]string{
		"SELECT * FROM t LIMIT 5 -- first five":   "SELECT * FROM t",
		"SELECT * FROM t WHERE s = 'x LIMIT 5'":   "SELECT * FROM t WHERE s = 'x LIMIT 5'",
		"SELECT * FROM t -- LIMIT 5":              "SELECT * FROM t -- LIMIT 5",
		"SELECT 'é' AS e FROM t LIMIT 2 OFFSET 4": "SELECT 'é' AS e FROM t",
	}
	for input, want := range strip {
		if got := StripPagination(input); got != want {
			t.Fatalf("StripPagination(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestValidateRejectsBackslashEscapedTerminator(t *testing.T) {
	for _, input := range []string{
		`SELECT 'x\'' ; DROP TABLE customers`,
		`SELECT 'a\'; DROP TABLE customers`,
	} {
		if _, err := Validate(input); !apperr.Is(err, apperr.UnsafeQuery) {
			t.Fatalf("Validate(%q) error = %v, want unsafe query", input, err)
		}
	}
	if _, err := Validate(`SELECT 'C:\path' AS p, 'it''s' AS q`); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestValidateReportsNonASCIILeadingRune(t *testing.T) {
	_, err := Validate("€ SELECT 1")
	if err == nil {
		t.Fatal("expected rejection")
	}
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		t.Fatalf("error type = %T", err)
	}
	if !utf8.ValidString(appErr.Message) || !strings.HasSuffix(appErr.Message, "€") {
		t.Fatalf("message = %q", appErr.Message)
	}
}
