// Package dom models a point-in-time copy of a chat page.
//
// A Snapshot is serialized HTML parsed with goquery. The live browser adapter
// stamps each element with its bounding box in the data-cs-rect attribute
// before serializing, so geometry survives the copy; RectOf reads it back.
// Lines reads an element's text the way it renders, one entry per block.
//
// StaticPage replays saved frames and stands in for a browser in tests and
// in replay mode.
package dom
