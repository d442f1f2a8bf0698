// Package match selects YouTrack records with expr-lang boolean expressions.
//
//	compiler := match.NewCompiler(match.WithCache(64))
//	program, err := compiler.Compile(`Name contains "bug" or icontains(Query, "#unresolved")`)
//	if err != nil {
//		return err // *match.CompilationError
//	}
//	filters = match.FilterFilters(program, filters)
//
// Saved searches expose Name and Query; users expose Username, FullName and
// Email.
package match
