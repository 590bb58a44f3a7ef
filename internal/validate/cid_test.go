package validate

import "testing"

func TestMetadataHash(t *testing.T) {
	tests := []struct {
		name    string
		hash    string
		wantErr bool
	}{
		{"cidv0", "QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG", false},
		{"cidv1 base32", "bafybeigdyrzt5sfp7udm7hu76uh7y26nf3efuylqabf3oclgtqy55fbzdi", false},
		{"empty", "", true},
		{"cidv0 bad alphabet", "QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbd0", true},
		{"cidv0 truncated", "QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPb", true},
		{"cidv1 uppercase body", "bAFYBEIGDYRZT5SFP7UDM7HU76UH7Y26NF3EFUYLQABF3OCLGTQY55FBZDI", true},
		{"cidv1 bad chars", "bafy!!!", true},
		{"unknown prefix", "zdj7WWeQ43G6JJvLWQWZpyHuAMq6uYWRjkBXFad11vE2LHhQ7", true},
		{"url", "https://example.com/meta.json", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := MetadataHash(tt.hash)
			if (err != nil) != tt.wantErr {
				t.Errorf("MetadataHash(%q) error = %v, wantErr %v", tt.hash, err, tt.wantErr)
			}
		})
	}
}
