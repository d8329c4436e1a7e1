// Copyright (c) 2025 Quantum Lens
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"
	"strconv"

	"github.com/AlecAivazis/survey/v2"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"qlens/cli/internal/errs"
	"qlens/cli/internal/logging"
	"qlens/cli/internal/project"
)

var projectsCmd = &cobra.Command{
	Use:     "projects",
	Aliases: []string{"project"},
	Short:   "Manage Quantum Lens projects",
}

var projectsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects with their cached connection details",

	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := getApp()
		if err != nil {
			return err
		}
		list, err := a.projects.List(cmd.Context())
		if err != nil {
			pterm.Error.Println(logging.PresentError("failed to fetch projects", err))
			return err
		}
		if len(list) == 0 {
			pterm.Println("No projects yet. Create one with: qlens projects create")
			return nil
		}

		rows := pterm.TableData{{"ID", "Name", "Host", "Database", "Queries"}}
		for _, p := range list {
			rows = append(rows, []string{
				strconv.Itoa(p.ID),
				p.Name,
				p.DBConfig.Host,
				p.DBConfig.Database,
				strconv.Itoa(len(p.Queries)),
			})
		}
		return pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
	},
}

var projectsShowCmd = &cobra.Command{
	Use:   "show <project-id>",
	Short: "Show one project, merged with its cached configuration",
	Args:  cobra.ExactArgs(1),

	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := getApp()
		if err != nil {
			return err
		}
		id, err := parseProjectID(args[0])
		if err != nil {
			return err
		}
		p, err := a.projects.Get(cmd.Context(), id)
		if err != nil {
			pterm.Error.Println(logging.PresentError("failed to fetch project", err))
			return err
		}

		pterm.DefaultSection.Println(p.Name)
		if p.Description != "" {
			pterm.Println(p.Description)
		}
		rows := pterm.TableData{
			{"ID", strconv.Itoa(p.ID)},
			{"Host", p.DBConfig.Host},
			{"Database", p.DBConfig.Database},
			{"User", p.DBConfig.User},
			{"Created", p.CreatedAt},
			{"Updated", p.UpdatedAt},
		}
		if p.Performance.TotalQueries > 0 {
			rows = append(rows,
				[]string{"Total queries", strconv.Itoa(p.Performance.TotalQueries)},
				[]string{"Avg execution", fmt.Sprintf("%.1f ms", p.Performance.AvgExecutionTime)},
			)
		}
		return pterm.DefaultTable.WithData(rows).Render()
	},
}

var (
	createName        string
	createDescription string
)

var projectsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a project with its database connection",

	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := getApp()
		if err != nil {
			return err
		}

		in := project.CreateInput{Name: createName, Description: createDescription}
		if in.Name == "" {
			if err := survey.AskOne(&survey.Input{Message: "Project name:"}, &in.Name); err != nil {
				return err
			}
		}
		if err := askDBConfig(&in.DBConfig); err != nil {
			return err
		}

		p, err := a.projects.Create(cmd.Context(), in)
		if err != nil {
			if errs.IsKind(err, errs.Validation) {
				pterm.Error.Println(errs.MessageOf(err))
				return nil
			}
			pterm.Error.Println(logging.PresentError("failed to create project", err))
			return err
		}
		pterm.Success.Printf("Project %q created with id %d\n", p.Name, p.ID)
		return nil
	},
}

var projectsUpdateCmd = &cobra.Command{
	Use:   "update <project-id>",
	Short: "Update a project's name, description or connection",
	Args:  cobra.ExactArgs(1),

	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := getApp()
		if err != nil {
			return err
		}
		id, err := parseProjectID(args[0])
		if err != nil {
			return err
		}
		current, err := a.projects.Get(cmd.Context(), id)
		if err != nil {
			pterm.Error.Println(logging.PresentError("failed to fetch project", err))
			return err
		}

		in := project.UpdateInput{
			Name:        current.Name,
			Description: current.Description,
			DBConfig:    current.DBConfig,
			Queries:     current.Queries,
			Performance: current.Performance,
		}
		if err := survey.AskOne(&survey.Input{Message: "Project name:", Default: in.Name}, &in.Name); err != nil {
			return err
		}
		changeConn := false
		if err := survey.AskOne(&survey.Confirm{Message: "Change connection settings?"}, &changeConn); err != nil {
			return err
		}
		if changeConn {
			if err := askDBConfig(&in.DBConfig); err != nil {
				return err
			}
		}

		p, err := a.projects.Update(cmd.Context(), id, in)
		if err != nil {
			pterm.Error.Println(logging.PresentError("failed to update project", err))
			return err
		}
		pterm.Success.Printf("Project %q updated\n", p.Name)
		return nil
	},
}

var projectsDeleteCmd = &cobra.Command{
	Use:   "delete <project-id>",
	Short: "Delete a project and purge its local cache",
	Args:  cobra.ExactArgs(1),

	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := getApp()
		if err != nil {
			return err
		}
		id, err := parseProjectID(args[0])
		if err != nil {
			return err
		}
		confirmed := false
		prompt := &survey.Confirm{Message: fmt.Sprintf("Delete project %d and its chat history?", id)}
		if err := survey.AskOne(prompt, &confirmed); err != nil {
			return err
		}
		if !confirmed {
			return nil
		}
		if err := a.projects.Delete(cmd.Context(), id); err != nil {
			pterm.Error.Println(logging.PresentError("failed to delete project", err))
			return err
		}
		pterm.Success.Printf("Project %d deleted\n", id)
		return nil
	},
}

func init() {
	projectsCreateCmd.Flags().StringVar(&createName, "name", "", "Project name (prompted when omitted)")
	projectsCreateCmd.Flags().StringVar(&createDescription, "description", "", "Project description")
	projectsCmd.AddCommand(projectsListCmd, projectsShowCmd, projectsCreateCmd, projectsUpdateCmd, projectsDeleteCmd)
	rootCmd.AddCommand(projectsCmd)
}

func parseProjectID(arg string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid project id %q", arg)
	}
	return id, nil
}

// askDBConfig prompts for the connection details required by a project.
// The password is optional and only ever forwarded to the server.
func askDBConfig(cfg *project.DBConfig) error {
	if err := survey.AskOne(&survey.Input{Message: "Database host:"}, &cfg.Host); err != nil {
		return err
	}
	var port string
	if err := survey.AskOne(&survey.Input{Message: "Port:", Default: "5432"}, &port); err != nil {
		return err
	}
	if n, err := strconv.Atoi(port); err == nil {
		cfg.Port = n
	}
	if err := survey.AskOne(&survey.Input{Message: "Database name:"}, &cfg.Database); err != nil {
		return err
	}
	if err := survey.AskOne(&survey.Input{Message: "User:"}, &cfg.User); err != nil {
		return err
	}
	return survey.AskOne(&survey.Password{Message: "Password (optional):"}, &cfg.Password)
}
