// Package calculator holds the pure money arithmetic of the service: tithe
// task summaries and reimbursement balances. All sums are done in integer
// cents.
package calculator
