package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

func smells(m dsl.Matcher) {
	// Consecutive guards with the same return:
	//   if a { return err }
	//   if b { return err }
	m.Match(`if $c1 { return $ret }; if $c2 { return $ret }`).
		Report(`two consecutive guards return the same value; consider merging conditions with ||`).
		Suggest(`if $c1 || $c2 { return $ret }`)

	m.Match(`if $c1 { continue }; if $c2 { continue }`).
		Report(`two consecutive continues; consider merging conditions with ||`).
		Suggest(`if $c1 || $c2 { continue }`)

	m.Match(`for $*_ { for $*_ { $*_ } }`).
		Report(`nested for-loop; consider extracting inner loop logic or reducing algorithmic complexity`)
}

// logging flags output that bypasses the logrus logger.
func logging(m dsl.Matcher) {
	m.Match(`log.Printf($*_)`, `log.Println($*_)`, `log.Print($*_)`).
		Where(!m.File().Name.Matches(`_test\.go$`)).
		Report(`use the injected logrus.FieldLogger instead of the standard log package`)

	m.Match(`fmt.Println($*_)`, `fmt.Printf($*_)`).
		Where(m.File().PkgPath.Matches(`/internal/`) && !m.File().Name.Matches(`_test\.go$`)).
		Report(`internal packages log through logrus, not stdout`)
}

// streaming covers the SSE and NDJSON handlers.
func streaming(m dsl.Matcher) {
	m.Match(`$w.(http.Flusher)`).
		Report(`use http.NewResponseController($w).Flush() so wrapped writers are unwrapped`)

	m.Match(`context.Background()`).
		Where(m.File().PkgPath.Matches(`/internal/api/`) && !m.File().Name.Matches(`_test\.go$`)).
		Report(`handlers should derive contexts from the request`)
}
