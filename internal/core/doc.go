// Package core imports product files into the POS catalog.
//
// This package holds the import logic independent of any UI or transport
// layer. The HTTP server and the posctl CLI both drive it through [Service].
//
// # Pipeline
//
// Every run follows the same steps:
//
//  1. The header row is read and [DetectDialect] picks the export format
//     that produced the file (WooCommerce, Shopify, or the generic fallback).
//  2. [ResolveFields] maps each product field to a column by trying the
//     dialect's aliases in priority order.
//  3. Each row is cleaned ([CleanPrice], [CleanStock], [CleanBarcode]) into
//     a [Candidate] and checked by [ValidateCandidate].
//  4. [Importer.Preview] stops after a few candidates and writes nothing;
//     [Importer.Commit] reads the whole file and creates or updates products.
//
// Invalid rows never stop a run. They are reported with their line number
// and the next row is processed.
//
// # Sources
//
// CSV files are decoded to UTF-8 first (utf-8 with or without BOM,
// windows-1252, iso-8859-1). XLSX workbooks are read from their first sheet.
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each message carries a code (IMP, DB, FILE, UPL, BAK, RATE) for support
// reference.
package core
