// Copyright 2025 The UrnaMapa Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"context"
	"errors"
	"fmt"

	apikeys "cloud.google.com/go/apikeys/apiv2"
	"cloud.google.com/go/apikeys/apiv2/apikeyspb"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/iterator"
)

// KeyDisplayName is the display name of the Maps key looked up through ADC.
const KeyDisplayName = "UrnaMapa Geocoding Key"

// ErrKeyNotFound is returned when no key with KeyDisplayName exists in the project.
var ErrKeyNotFound = eris.New("geocoding key not found")

// APIKeyFromADC retrieves the Google Maps key secret through Application
// Default Credentials and the API Keys service. project overrides the
// project found in the credentials.
func APIKeyFromADC(ctx context.Context, project string) (string, error) {
	projectID := project
	if projectID == "" {
		creds, err := google.FindDefaultCredentials(ctx, "https://www.googleapis.com/auth/cloud-platform")
		if err != nil {
			return "", eris.Wrap(err, "finding default credentials")
		}

		projectID = creds.ProjectID
	}

	if projectID == "" {
		// user credentials without a quota project carry no project id
		return "", eris.New("no project id in credentials; set geocode.google_project")
	}

	client, err := apikeys.NewClient(ctx)
	if err != nil {
		return "", eris.Wrap(err, "creating apikeys client")
	}
	defer client.Close()

	it := client.ListKeys(ctx, &apikeyspb.ListKeysRequest{
		Parent: fmt.Sprintf("projects/%s/locations/global", projectID),
	})

	for {
		key, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}

		if err != nil {
			return "", eris.Wrap(err, "listing keys")
		}

		if key.DisplayName != KeyDisplayName {
			continue
		}

		// ListKeys redacts the secret, GetKeyString returns it.
		zap.L().Debug("found geocoding key resource", zap.String("name", key.Name))

		resp, err := client.GetKeyString(ctx, &apikeyspb.GetKeyStringRequest{Name: key.Name})
		if err != nil {
			return "", eris.Wrap(err, "getting key string")
		}

		if resp.KeyString == "" {
			return "", eris.Errorf("key %q has an empty key string", key.Name)
		}

		return resp.KeyString, nil
	}

	return "", eris.Wrapf(ErrKeyNotFound, "display name %q in project %s", KeyDisplayName, projectID)
}
