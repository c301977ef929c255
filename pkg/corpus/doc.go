/*
Package corpus stores source texts for the markov package in a SQLite
database.

A corpus is a named, ordered sequence of tokens produced by the tokenize
package. Tokens are stored once in a shared vocabulary table and referenced
by position, so a corpus can be appended to, exported to JSON and imported
into another database. Markov mappings are never stored; they are rebuilt in
memory from Tokens whenever a walk needs them.
*/
package corpus
