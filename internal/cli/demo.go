package cli

import (
	"github.com/spf13/cobra"

	"github.com/canopyview/canopy/pkg/chat"
	"github.com/canopyview/canopy/pkg/layout"
)

// demoCommand creates the demo command that writes a sample conversation.
func (c *CLI) demoCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Write a sample branching conversation",
		Long: `Write a sample branching conversation to a JSON file.

The sample has a root thread with two side branches and one nested branch,
enough structure to exercise layout, connectors, and the viewer. Use it as
input for the layout, render, and view commands.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conv, err := SampleConversation()
			if err != nil {
				return err
			}
			if err := chat.WriteConversationFile(conv, output); err != nil {
				return err
			}

			printSuccess("Sample conversation written")
			printFile(output)
			printDetail("Branches: %d", len(conv.Branches))
			printNewline()
			printNextStep("Render", appName+" render "+output)
			printNextStep("Explore", appName+" view "+output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "conversation.json", "output file")

	return cmd
}

// SampleConversation builds the demo tree. Exported for the serve command's
// --demo mode.
func SampleConversation() (*chat.Conversation, error) {
	conv := chat.New("Trip planning")
	root := conv.Active()

	if _, err := conv.AddMessage(root.ID, "Plan a week in Portugal"); err != nil {
		return nil, err
	}
	if _, err := conv.AddMessage(root.ID, "Focus on Lisbon and Porto"); err != nil {
		return nil, err
	}

	budget, err := conv.CreateBranch(root.ID, "budget version")
	if err != nil {
		return nil, err
	}
	budget.Summary = "Same trip, hostels and trains"
	if _, err := conv.AddMessage(budget.ID, "Redo the plan under 800 euros"); err != nil {
		return nil, err
	}

	food, err := conv.CreateBranch(root.ID, "food detour")
	if err != nil {
		return nil, err
	}
	food.Summary = "Restaurant-first itinerary"
	if _, err := conv.AddMessage(food.ID, "Which tascas are worth a detour?"); err != nil {
		return nil, err
	}

	coast, err := conv.CreateBranch(budget.ID, "coast day trips")
	if err != nil {
		return nil, err
	}
	coast.Summary = "Cheap beach days near Lisbon"
	if _, err := conv.AddMessage(coast.ID, "Add two coastal day trips by train"); err != nil {
		return nil, err
	}

	if _, err := layout.Refresh(conv); err != nil {
		return nil, err
	}
	return conv, nil
}
