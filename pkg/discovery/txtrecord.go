package discovery

import (
	"fmt"
	"strconv"
	"strings"
)

// TXTRecordMap holds mDNS TXT records as key/value pairs.
type TXTRecordMap map[string]string

// EncodeBrokerTXT builds the TXT records for a broker advertisement.
func EncodeBrokerTXT(info *BrokerInfo) TXTRecordMap {
	txt := make(TXTRecordMap)

	if info.NodeID >= 0 {
		txt[TXTKeyNodeID] = strconv.FormatInt(int64(info.NodeID), 10)
	}
	if info.Version != "" {
		txt[TXTKeyVersion] = info.Version
	}
	if info.Cluster != "" {
		txt[TXTKeyCluster] = info.Cluster
	}

	return txt
}

// DecodeBrokerTXT parses broker TXT records. Unknown keys are ignored
// so newer brokers stay browsable.
func DecodeBrokerTXT(txt TXTRecordMap) (*BrokerInfo, error) {
	info := &BrokerInfo{NodeID: -1}

	if raw, ok := txt[TXTKeyNodeID]; ok {
		id, err := strconv.ParseInt(raw, 10, 32)
		if err != nil || id < 0 {
			return nil, fmt.Errorf("%w: bad node id %q", ErrInvalidTXT, raw)
		}
		info.NodeID = int32(id)
	}

	info.Version = txt[TXTKeyVersion]
	info.Cluster = txt[TXTKeyCluster]

	return info, nil
}

// TXTRecordsToStrings converts a TXTRecordMap to "key=value" strings.
func TXTRecordsToStrings(txt TXTRecordMap) []string {
	result := make([]string, 0, len(txt))
	for k, v := range txt {
		result = append(result, fmt.Sprintf("%s=%s", k, v))
	}
	return result
}

// StringsToTXTRecords parses a slice of "key=value" strings.
func StringsToTXTRecords(strs []string) TXTRecordMap {
	txt := make(TXTRecordMap)
	for _, s := range strs {
		parts := strings.SplitN(s, "=", 2)
		if len(parts) == 2 {
			txt[parts[0]] = parts[1]
		} else if len(parts) == 1 && parts[0] != "" {
			// Key without value (boolean flag)
			txt[parts[0]] = ""
		}
	}
	return txt
}

// ValidateInstanceName checks that an instance name is usable for mDNS.
func ValidateInstanceName(name string) error {
	if name == "" {
		return fmt.Errorf("instance name is empty")
	}
	if len(name) > 63 {
		return fmt.Errorf("instance name exceeds 63 bytes")
	}
	if strings.ContainsAny(name, ".\x00") {
		return fmt.Errorf("instance name contains invalid characters")
	}
	return nil
}
