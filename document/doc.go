// Package document defines the typed value model shared by filters and the
// matching engine.
//
// Documents arrive from the write path as decoded JSON; FromMap/FromAny adapt
// them into the typed representation once, so that every filter evaluated
// against the document works on stable kinds instead of reflecting over `any`.
package document
