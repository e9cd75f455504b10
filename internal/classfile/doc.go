// Package classfile reads and writes JVM class files.
//
// The model is shallow: names, descriptors and access flags are
// resolved to Go values, while attribute bodies stay raw bytes so untouched
// code round-trips unchanged. The constant pool only ever grows; constants
// added while synthesizing methods are appended after the parsed ones, which
// keeps every index referenced from raw attributes valid.
//
// Only what the rewriting stages need is decoded: annotations (read and
// write), the Signature attribute, and BootstrapMethods. Code is produced by
// the Code assembler, which emits straight-line bodies and so never needs a
// StackMapTable.
package classfile
