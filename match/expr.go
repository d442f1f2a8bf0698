package match

import (
	"maps"
	"regexp"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/s0up4200/youtrackr/youtrack"
)

// Env holds the record fields an expression runs against
type Env map[string]any

// FilterEnv exposes a saved search as Name and Query
func FilterEnv(f youtrack.Filter) Env {
	return Env{
		"Name":  f.Name,
		"Query": f.Query,
	}
}

// UserEnv exposes a user as Username, FullName and Email
func UserEnv(u youtrack.User) Env {
	return Env{
		"Username": u.Username,
		"FullName": u.FullName,
		"Email":    u.Email,
	}
}

// recordFields declares the fields of FilterEnv and UserEnv so expressions
// over them are type checked when compiled
func recordFields() map[string]any {
	return map[string]any{
		"Name":     "",
		"Query":    "",
		"Username": "",
		"FullName": "",
		"Email":    "",
	}
}

// Program is a compiled boolean expression. It is safe for concurrent use.
type Program struct {
	expression string
	program    *vm.Program
	functions  map[string]any
}

// Expression returns the source the program was compiled from
func (p *Program) Expression() string {
	return p.expression
}

// Match runs the program against env plus the compiler's helper functions.
// A runtime error is a non-match.
func (p *Program) Match(env Env) bool {
	vars := make(map[string]any, len(p.functions)+len(env))
	maps.Copy(vars, p.functions)
	maps.Copy(vars, env)

	result, err := expr.Run(p.program, vars)
	if err != nil {
		return false
	}

	b, ok := result.(bool)
	return ok && b
}

// Option configures a Compiler
type Option func(*Compiler)

// WithCache keeps up to size compiled programs, least recently used evicted first
func WithCache(size int) Option {
	return func(c *Compiler) {
		if size > 0 {
			c.cache = newProgramCache(size)
		}
	}
}

// WithFunctions adds helper functions to every expression
func WithFunctions(funcs map[string]any) Option {
	return func(c *Compiler) {
		maps.Copy(c.functions, funcs)
	}
}

// Compiler turns expressions into Programs
type Compiler struct {
	functions map[string]any
	cache     *programCache
}

// NewCompiler creates a compiler with the built-in helpers
func NewCompiler(opts ...Option) *Compiler {
	c := &Compiler{
		functions: helperFunctions(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Compile compiles expression into a Program that must yield a bool
func (c *Compiler) Compile(expression string) (*Program, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return nil, &CompilationError{
			Expression: expression,
			Reason:     "empty expression",
		}
	}

	if c.cache != nil {
		if cached, ok := c.cache.Get(expression); ok {
			return cached, nil
		}
	}

	env := recordFields()
	maps.Copy(env, c.functions)

	program, err := expr.Compile(expression,
		expr.Env(env),
		expr.AllowUndefinedVariables(),
		expr.AsBool(),
	)
	if err != nil {
		return nil, &CompilationError{
			Expression: expression,
			Reason:     "failed to compile expression",
			Err:        err,
		}
	}

	compiled := &Program{
		expression: expression,
		program:    program,
		functions:  c.functions,
	}

	if c.cache != nil {
		c.cache.Put(expression, compiled)
	}

	return compiled, nil
}

// Clear drops every cached program
func (c *Compiler) Clear() {
	if c.cache != nil {
		c.cache.Clear()
	}
}

// Size returns the number of cached programs
func (c *Compiler) Size() int {
	if c.cache != nil {
		return c.cache.Len()
	}
	return 0
}

// FilterFilters returns the filters p matches, in order. The result is never nil.
func FilterFilters(p *Program, filters []youtrack.Filter) []youtrack.Filter {
	matched := make([]youtrack.Filter, 0, len(filters))
	for _, f := range filters {
		if p.Match(FilterEnv(f)) {
			matched = append(matched, f)
		}
	}
	return matched
}

// FilterUsers returns the users p matches, in order. The result is never nil.
func FilterUsers(p *Program, users []*youtrack.User) []*youtrack.User {
	matched := make([]*youtrack.User, 0, len(users))
	for _, u := range users {
		if u != nil && p.Match(UserEnv(*u)) {
			matched = append(matched, u)
		}
	}
	return matched
}

// helperFunctions returns the functions available to every expression.
// The expression language already provides case-sensitive contains, startsWith,
// endsWith and matches operators; these are their case-insensitive forms.
func helperFunctions() map[string]any {
	env := make(map[string]any, 8)
	env["icontains"] = func(str, substr string) bool {
		return strings.Contains(strings.ToLower(str), strings.ToLower(substr))
	}
	env["istartsWith"] = func(str, prefix string) bool {
		return strings.HasPrefix(strings.ToLower(str), strings.ToLower(prefix))
	}
	env["iendsWith"] = func(str, suffix string) bool {
		return strings.HasSuffix(strings.ToLower(str), strings.ToLower(suffix))
	}
	env["imatches"] = func(str, pattern string) bool {
		re, err := regexp.Compile("(?i)" + pattern)
		if err != nil {
			return false
		}
		return re.MatchString(str)
	}
	return env
}
