// Package subpop supplies the consent groups (subpopulations) evaluated
// during session assembly.
//
// A [Cached] registry sits in front of a [Source] such as [Static] or the
// DynamoDB source in subpop/dynamo. It hides deleted records, orders the
// rest by criteria specificity, and gives a tenant with no records a
// single required default group.
package subpop
