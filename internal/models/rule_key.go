package models

import (
	"fmt"
	"strings"
)

// InstitutionWidth is the width of an institution code like QCC01.
const InstitutionWidth = 5

// RuleKey is the parsed form of SRC_INST:DST_INST:SUBJECT:GROUP.
type RuleKey struct {
	SrcInstitution string
	DstInstitution string
	Rest           string
}

func ParseRuleKey(s string) (RuleKey, error) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) < 3 || len(parts[0]) < InstitutionWidth || len(parts[1]) < InstitutionWidth {
		return RuleKey{}, fmt.Errorf("%w: %q", ErrInvalidRuleKey, s)
	}
	return RuleKey{
		SrcInstitution: parts[0][:InstitutionWidth],
		DstInstitution: parts[1][:InstitutionWidth],
		Rest:           parts[2],
	}, nil
}

func (k RuleKey) String() string {
	return k.SrcInstitution + ":" + k.DstInstitution + ":" + k.Rest
}

// SameCollege compares institution codes on their college prefix, so "qcc" matches "QCC01".
func SameCollege(a, b string) bool {
	const prefix = 3
	if len(a) > prefix {
		a = a[:prefix]
	}
	if len(b) > prefix {
		b = b[:prefix]
	}
	return strings.EqualFold(a, b)
}
