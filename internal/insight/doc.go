// Package insight computes statistics over recording leads. It has no
// storage dependencies and no failure modes.
package insight
