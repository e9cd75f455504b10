package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// Malformed input: aborts the current module
	MalInfo                Code = 1000
	MalClassFile           Code = 1001
	MalModuleName          Code = 1002
	MalReservedNamespace   Code = 1003
	MalNameMismatch        Code = 1004
	MalReservedMethodName  Code = 1005
	MalFinalInterface      Code = 1006
	MalConstantPool        Code = 1007
	MalAnnotation          Code = 1008
	MalBootstrapAttribute  Code = 1009
	MalClassFileTooLarge   Code = 1010
	MalDuplicateGeneration Code = 1011

	// Annotation shape: aborts the current module
	ShpInfo               Code = 2000
	ShpNoArgument         Code = 2001
	ShpTooManyArguments   Code = 2002
	ShpPrivateSubscriber  Code = 2003
	ShpBadDescriptor      Code = 2004
	ShpBadApplicationID   Code = 2005
	ShpBadGroupAnnotation Code = 2006

	// Unsupported signature: recoverable, generic type degrades to unknown
	SigInfo             Code = 3000
	SigWildcardGeneric  Code = 3001
	SigMultipleGenerics Code = 3002

	// Usage: aborts the whole build
	UseInfo             Code = 4000
	UseAlreadyFinished  Code = 4001
	UseNoApplications   Code = 4002
	UseSubmitAfterEnd   Code = 4003
	UseCheckerReentered Code = 4004

	// Consistency findings: never fatal
	ChkInfo                  Code = 5000
	ChkOverriddenSubscriber  Code = 5001
	ChkStaticShadowsInstance Code = 5002
	ChkGroupWithoutStatic    Code = 5003
	ChkUnknownGroupTarget    Code = 5004
	ChkDuplicateApplication  Code = 5005

	// IO around the pipeline (archives, cache, sinks)
	IOInfo        Code = 6000
	IOReadInput   Code = 6001
	IOWriteOutput Code = 6002
	IOCache       Code = 6003
)

var (
	codeDescription = map[Code]string{
		UnknownCode:              "Unknown error",
		MalInfo:                  "Malformed input information",
		MalClassFile:             "Malformed class file",
		MalModuleName:            "Invalid module name",
		MalReservedNamespace:     "Module in reserved namespace",
		MalNameMismatch:          "Module name does not match class name",
		MalReservedMethodName:    "Method uses a reserved registrar name",
		MalFinalInterface:        "Interface is marked final",
		MalConstantPool:          "Malformed constant pool",
		MalAnnotation:            "Malformed annotation attribute",
		MalBootstrapAttribute:    "Malformed BootstrapMethods attribute",
		MalClassFileTooLarge:     "Class file exceeds format limits",
		MalDuplicateGeneration:   "Generated class name collides with an input",
		ShpInfo:                  "Annotation shape information",
		ShpNoArgument:            "Subscriber must have one argument",
		ShpTooManyArguments:      "Subscriber must have only one argument",
		ShpPrivateSubscriber:     "Subscriber must not be private",
		ShpBadDescriptor:         "Unparseable method descriptor",
		ShpBadApplicationID:      "Application annotation without an id",
		ShpBadGroupAnnotation:    "Malformed subscriber group annotation",
		SigInfo:                  "Signature information",
		SigWildcardGeneric:       "Wildcard generic on subscriber",
		SigMultipleGenerics:      "Multiple generic parameters on subscriber",
		UseInfo:                  "Usage information",
		UseAlreadyFinished:       "Pipeline already finished",
		UseNoApplications:        "No application entry point found",
		UseSubmitAfterEnd:        "Module submitted after finish",
		UseCheckerReentered:      "Consistency check already ran",
		ChkInfo:                  "Consistency information",
		ChkOverriddenSubscriber:  "Subscriber overrides an inherited subscriber",
		ChkStaticShadowsInstance: "Static subscriber shadows an inherited instance subscriber",
		ChkGroupWithoutStatic:    "Subscriber group without static subscribers",
		ChkUnknownGroupTarget:    "Subscriber group targets an unknown application",
		ChkDuplicateApplication:  "Application id declared more than once",
		IOInfo:                   "IO information",
		IOReadInput:              "Failed to read input",
		IOWriteOutput:            "Failed to write output",
		IOCache:                  "Cache failure",
	}
)

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("MAL%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("SHP%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("SIG%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("USE%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("CHK%04d", ic)
	case ic >= 6000 && ic < 7000:
		return fmt.Sprintf("IO%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[Code(0)]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
