package discovery

import (
	"fmt"
	"sort"
	"strings"
)

// TXTRecordMap holds TXT key/value pairs.
type TXTRecordMap map[string]string

// EncodeTXT builds the TXT records for a provider. Empty fields are omitted.
func EncodeTXT(info *ProviderInfo) TXTRecordMap {
	txt := TXTRecordMap{TXTKeyTxtVers: TXTVersion}
	if info.Product != "" {
		txt[TXTKeyProduct] = info.Product
	}
	if info.Version != "" {
		txt[TXTKeyVersion] = info.Version
	}
	if info.Root != "" {
		txt[TXTKeyRoot] = info.Root
	}
	return txt
}

// DecodeTXT reads the provider fields from TXT records. Records without a
// txtvers key are accepted; a txtvers other than the one we write is not.
func DecodeTXT(txt TXTRecordMap) (*ProviderInfo, error) {
	if v, ok := txt[TXTKeyTxtVers]; ok && v != TXTVersion {
		return nil, fmt.Errorf("%w: unsupported txtvers %q", ErrInvalidTXTRecord, v)
	}
	return &ProviderInfo{
		Product: txt[TXTKeyProduct],
		Version: txt[TXTKeyVersion],
		Root:    txt[TXTKeyRoot],
	}, nil
}

// TXTRecordsToStrings converts a TXTRecordMap to sorted "key=value" strings.
func TXTRecordsToStrings(txt TXTRecordMap) []string {
	result := make([]string, 0, len(txt))
	for k, v := range txt {
		result = append(result, k+"="+v)
	}
	sort.Strings(result)
	return result
}

// StringsToTXTRecords parses "key=value" strings into a TXTRecordMap.
func StringsToTXTRecords(strs []string) TXTRecordMap {
	txt := make(TXTRecordMap)
	for _, s := range strs {
		k, v, found := strings.Cut(s, "=")
		if !found && k == "" {
			continue
		}
		// Key without value (boolean flag)
		txt[k] = v
	}
	return txt
}

// ValidateInstanceName checks if an instance name is valid for mDNS.
func ValidateInstanceName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInstanceNameTooLong)
	}
	if len(name) > MaxInstanceNameLen {
		return ErrInstanceNameTooLong
	}
	return nil
}
