// Package narrative renders an encounter's event log as text.
//
// Three projection styles exist: Timeline (one line per event, in log
// order), Summary (SOAP-like sections), and Context (a compact paragraph
// sized for a language-model prompt). All three are pure functions of
// their inputs: same ledger, same bytes.
//
// Every projection takes Options carrying a verb allow-list. Filtering is
// applied to the event list before any section logic runs, so content
// from an excluded verb cannot leak into any clause. This is the
// information-access boundary for restricted personas: a consumer that
// should not see ordering details passes an allow-list without ORDERED
// and the rendered text carries no order content in any style.
package narrative
