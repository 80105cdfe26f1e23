// Package properties implements the ordered property bags attached to publish
// items.
//
// A Bag keeps keys in insertion order and serializes to an ordered mapping of
// JSON-compatible values. Values that cannot be represented fail when the bag
// is serialized, not when the document is later written. An Overlay layers a
// plugin's local bag over an item's global bag: reads fall through to the
// global bag, writes and deletes stay local.
package properties
