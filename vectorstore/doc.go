// Package vectorstore defines the persistence port for chunk vectors.
//
// The VectorStore interface abstracts hybrid dense+sparse storage and
// retrieval so retrieval logic stays independent of any particular engine.
// The production implementation lives in vectorstore/qdrant.
package vectorstore
