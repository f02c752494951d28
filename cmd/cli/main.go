package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/go-resty/resty/v2"
	"github.com/spf13/cobra"

	"clubhouse/internal/database"
	"clubhouse/internal/middleware"
	"clubhouse/pkg/utils"
)

var baseURL string
var sessionToken string

type ResponseError struct {
	Message string `json:"message"`
}

var apiServiceBase = func() *resty.Client {
	client := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json").
		SetError(&ResponseError{}).
		OnAfterResponse(func(c *resty.Client, resp *resty.Response) error {
			if resp.StatusCode() >= 400 {
				if respErr, ok := resp.Error().(*ResponseError); ok && respErr.Message != "" {
					return fmt.Errorf("%s", respErr.Message)
				}
				return fmt.Errorf("request failed with status %d", resp.StatusCode())
			}

			return nil
		})

	if sessionToken != "" {
		client.SetCookie(&http.Cookie{Name: middleware.SessionCookie, Value: sessionToken})
	}

	return client
}

// withCSRF primes the double-submit cookie and mirrors it into the
// header resty sends on the next request.
func withCSRF(client *resty.Client) (*resty.Client, error) {
	resp, err := client.R().Get("/login")
	if err != nil {
		return nil, err
	}

	for _, cookie := range resp.Cookies() {
		if cookie.Name == "csrf_" {
			client.SetCookie(cookie)
			client.SetHeader("X-Csrf-Token", cookie.Value)
			return client, nil
		}
	}

	return nil, fmt.Errorf("no CSRF cookie issued by %s", baseURL)
}

var rootCmd = &cobra.Command{
	Use:   "clubhouse",
	Short: "Clubhouse CLI",
}

var loginCmd = &cobra.Command{
	Use:   "login <email> <password>",
	Short: "Log in and print the session token",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		resp, err := apiServiceBase().R().
			SetBody(map[string]string{
				"email":    args[0],
				"password": args[1],
			}).
			SetResult(&database.User{}).
			Post("/api/login")

		if err != nil {
			fmt.Println("Error:", err)
			return
		}

		user := resp.Result().(*database.User)

		fmt.Println("User ID :", user.ID)
		fmt.Println("Email   :", user.Email)
		for _, cookie := range resp.Cookies() {
			if cookie.Name == middleware.SessionCookie {
				fmt.Println("Session :", cookie.Value)
				fmt.Printf("\nexport CLUBHOUSE_SESSION=%s\n", cookie.Value)
			}
		}
	},
}

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users",
}

var userCreateCmd = &cobra.Command{
	Use:   "create <email>",
	Short: "Register a new user",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		email := args[0]
		password := utils.GenerateRandomString(12)

		client, err := withCSRF(apiServiceBase())
		if err != nil {
			fmt.Println("Error:", err)
			return
		}

		resp, err := client.R().
			SetBody(map[string]string{
				"email":    email,
				"password": password,
			}).
			SetResult(&database.User{}).
			Post("/api/register")

		if err != nil {
			fmt.Println("Error:", err)
			return
		}

		user := resp.Result().(*database.User)

		fmt.Println("User ID  :", user.ID)
		fmt.Println("Email    :", user.Email)
		fmt.Println("Password :", password)
	},
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List users (administrator only)",
	Run: func(cmd *cobra.Command, args []string) {
		resp, err := apiServiceBase().R().
			SetResult(&[]database.User{}).
			Get("/api/users")

		if err != nil {
			fmt.Println("Error:", err)
			return
		}

		users := resp.Result().(*[]database.User)
		for _, user := range *users {
			fmt.Printf("%s  %-30s  logins=%d\n", user.ID, user.Email, user.LoginCount)
		}
	},
}

var roleCmd = &cobra.Command{
	Use:   "role",
	Short: "Manage roles",
}

var roleListCmd = &cobra.Command{
	Use:   "list",
	Short: "List roles (administrator only)",
	Run: func(cmd *cobra.Command, args []string) {
		resp, err := apiServiceBase().R().
			SetResult(&[]database.Role{}).
			Get("/api/roles")

		if err != nil {
			fmt.Println("Error:", err)
			return
		}

		roles := resp.Result().(*[]database.Role)
		for _, role := range *roles {
			fmt.Printf("%s  %-20s  %s\n", role.ID, role.Name, role.Description)
		}
	},
}

var roleAssignCmd = &cobra.Command{
	Use:   "assign <user_id> <role_name>",
	Short: "Assign a role to a user (administrator only)",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		client, err := withCSRF(apiServiceBase())
		if err != nil {
			fmt.Println("Error:", err)
			return
		}

		_, err = client.R().Post(fmt.Sprintf("/api/users/%s/roles/%s", args[0], args[1]))
		if err != nil {
			fmt.Println("Error:", err)
			return
		}

		fmt.Println("Role assigned")
	},
}

var roleRevokeCmd = &cobra.Command{
	Use:   "revoke <user_id> <role_name>",
	Short: "Revoke a role from a user (administrator only)",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		client, err := withCSRF(apiServiceBase())
		if err != nil {
			fmt.Println("Error:", err)
			return
		}

		_, err = client.R().Delete(fmt.Sprintf("/api/users/%s/roles/%s", args[0], args[1]))
		if err != nil {
			fmt.Println("Error:", err)
			return
		}

		fmt.Println("Role revoked")
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "http://localhost:3000", "API base URL")

	sessionToken = os.Getenv("CLUBHOUSE_SESSION")

	rootCmd.AddCommand(loginCmd)

	userCmd.AddCommand(userCreateCmd)
	userCmd.AddCommand(userListCmd)
	rootCmd.AddCommand(userCmd)

	roleCmd.AddCommand(roleListCmd)
	roleCmd.AddCommand(roleAssignCmd)
	roleCmd.AddCommand(roleRevokeCmd)
	rootCmd.AddCommand(roleCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
