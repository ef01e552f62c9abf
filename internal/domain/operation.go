package domain

// OperationCode identifies a mutating file operation
type OperationCode string

const (
	OpPaste    OperationCode = "PASTE"
	OpMkdir    OperationCode = "MKDIR"
	OpRename   OperationCode = "RENAME"
	OpDelete   OperationCode = "DELETE"
	OpUndelete OperationCode = "UNDELETE"
)

// IsValid checks if the operation code is a known value
func (o OperationCode) IsValid() bool {
	switch o {
	case OpPaste, OpMkdir, OpRename, OpDelete, OpUndelete:
		return true
	}
	return false
}

// ClipboardMethod tells whether a paste moves or copies
type ClipboardMethod string

const (
	MethodCut  ClipboardMethod = "CUT"
	MethodCopy ClipboardMethod = "COPY"
)

// IsValid checks if the clipboard method is a known value
func (m ClipboardMethod) IsValid() bool {
	return m == MethodCut || m == MethodCopy
}
