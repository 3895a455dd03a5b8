package main

import (
	"bufio"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"matching-platform/internal/ads"
)

var (
	tokenSecretsFile string
	tokenClientID    string
	tokenSecret      string
	tokenRedirectURL string
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Obtain a refresh token through the offline consent flow",
	Long: `token prints a consent URL, waits for the URL the browser was redirected to and
exchanges its code for a refresh token.

Examples:
  ads token --secrets client_secret.json
  ads token --client-id ID --client-secret SECRET`,
	RunE: runToken,
}

func init() {
	tokenCmd.Flags().StringVar(&tokenSecretsFile, "secrets", "", "OAuth client secrets JSON downloaded from the cloud console")
	tokenCmd.Flags().StringVar(&tokenClientID, "client-id", "", "OAuth client id")
	tokenCmd.Flags().StringVar(&tokenSecret, "client-secret", "", "OAuth client secret")
	tokenCmd.Flags().StringVar(&tokenRedirectURL, "redirect-url", ads.DefaultRedirectURL, "Redirect URL registered for the client")
}

func runToken(cmd *cobra.Command, _ []string) error {
	var conf *oauth2.Config
	switch {
	case tokenSecretsFile != "":
		c, err := ads.OAuthConfigFromFile(tokenSecretsFile)
		if err != nil {
			return err
		}
		conf = c
	case tokenClientID != "" && tokenSecret != "":
		conf = ads.OAuthConfig(tokenClientID, tokenSecret, tokenRedirectURL)
	default:
		return fmt.Errorf("either --secrets or --client-id and --client-secret are required")
	}

	state, err := randomState()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Open this URL in a browser and grant access:")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "  "+ads.ConsentURL(conf, state))
	fmt.Fprintln(out)
	fmt.Fprint(out, "Paste the full URL you were redirected to: ")

	redirect, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return fmt.Errorf("failed to read redirect url: %w", err)
	}

	tok, err := ads.ExchangeRedirect(cmd.Context(), conf, strings.TrimSpace(redirect), state)
	if err != nil {
		return err
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "GOOGLE_ADS_CLIENT_ID=%s\n", conf.ClientID)
	fmt.Fprintf(out, "GOOGLE_ADS_CLIENT_SECRET=%s\n", conf.ClientSecret)
	fmt.Fprintf(out, "GOOGLE_ADS_REFRESH_TOKEN=%s\n", tok.RefreshToken)
	return nil
}

func randomState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return hex.EncodeToString(b), nil
}
