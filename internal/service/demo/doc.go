// Package demo prints the human-approach walkthrough.
package demo
