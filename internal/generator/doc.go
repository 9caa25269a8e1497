// Package generator validates prompts, opens a model stream with retries
// and runs it through a template session.
package generator
