// Package meetup defines the meetup planning entities: the per-user Session
// that accumulates a meetup draft, the immutable Ping produced when a draft is
// sent, the static rosters of locations and friends, and input validation for
// free-text meetup times.
package meetup
