// Package tools holds the functions an assistant may call during a run.
//
// A Registry maps declared function names to handlers. It is filled once at
// startup and only read afterwards; Definitions feeds the declarations sent
// to the remote service when the assistant is created, so a name the
// assistant can call is always a name the registry can resolve.
package tools
