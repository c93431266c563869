/*
Package condition implements the boolean guard language used by transitions.

A condition string such as

	pin == stored_pin && attempts < 3

is parsed once, when the automaton definition is loaded, into a small tree of
tagged nodes (Literal, Var, Not, Neg, And, Or, Compare). Evaluation walks that
tree against a Scope of variables and is total: it never fails, unknown
variables evaluate to null, and comparisons between incompatible operands are
simply false.

Session variables are strings, so comparisons coerce both sides to numbers
when both sides look numeric ("12.50" > 10 is true) and fall back to string
comparison otherwise.
*/
package condition
