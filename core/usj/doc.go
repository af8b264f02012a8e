// Package usj provides the in-memory document tree for Unified Scripture JSON (USJ).
//
// A USJ document is a tree of marker nodes. Each node has a type (book,
// chapter, verse, para, char, note, ...), an optional marker naming the
// USFM tag, and an ordered content list whose elements are either literal
// text runs or nested nodes.
//
// # Content
//
// Content elements form a closed union:
//
//   - Text: a literal text run
//   - *Node: a nested marker node
//
// Code that walks content uses a type switch over these two cases.
//
// # Example
//
//	doc := &usj.Node{
//	    Type: usj.TypeRoot,
//	    Content: []usj.Content{
//	        &usj.Node{Type: usj.TypeBook, Marker: "id", Code: "GEN"},
//	        &usj.Node{Type: usj.TypeChapter, Marker: "c", Number: "1"},
//	        &usj.Node{Type: "para", Marker: "p", Content: []usj.Content{
//	            &usj.Node{Type: usj.TypeVerse, Marker: "v", Number: "1"},
//	            usj.Text("In the beginning"),
//	        }},
//	    },
//	}
//
// The tree is treated as immutable by every function in this module;
// filtering returns a copy.
package usj
