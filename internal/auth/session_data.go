package auth

import "encoding/json"

func decodeSessionData(data []byte) (sessionData, error) {
	var d sessionData
	if err := json.Unmarshal(data, &d); err != nil {
		return sessionData{}, err
	}
	return d, nil
}
