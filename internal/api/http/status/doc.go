// Package status serves a read-only JSON view of the decision service over
// HTTP, for dashboards and operators.
package status
