/*

Process of compilation

C Source Text ->
	parse ->
Abstract Syntax Tree (ast) <-
	decode <-
JSON Encoded Tree

Abstract Syntax Tree (ast) ->
	back (scopes, frame, registers, operands) ->
Sections: rodata, data, text (asm) ->
	render ->
Assembly Text (i386, AT&T syntax) ->
	as, ld ->
Binary Executable

*/
package compiler
