// Package criteria evaluates a request context against declarative
// eligibility rule sets and ranks matching rule sets by specificity.
//
// [Matches] is pure and allocation-light; it runs for every subpopulation on
// every session assembly. [Validate] is the configuration-time counterpart
// and reports every defect of a rule set at once.
package criteria
