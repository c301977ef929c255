/*
Package markov builds word-level Markov chains in memory and random-walks them
to produce new text.

Index turns an ordered token sequence into a Mapping from every fixed-length
window of tokens (a Partition) to the list of tokens observed right after it.
Duplicates are kept, so a successor seen K times is K times as likely to be
picked. Walk starts from a seed partition and repeatedly picks a successor,
slides the window by one token and continues until it reaches a partition
with no successors.

A Mapping is read-only once Index returns and may be shared by any number of
concurrent walks. The randomness used by a walk is injected through the
Chooser interface.
*/
package markov
