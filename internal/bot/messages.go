package bot

const welcomeText = `🤖 Advent of Code Leaderboard Bot

I monitor your private AoC leaderboards and notify you of updates!

Admin Commands:
/set_leaderboard &lt;id&gt; &lt;cookie&gt; [year] - Set leaderboard
/remove_leaderboard - Stop monitoring

Everyone Can Use:
/rankings - Show current rankings
/status - Show monitoring status
/help - Show detailed help

For more information, use /help`

const helpText = `How to use the bot:

1️⃣ Set a leaderboard (admin only):
   /set_leaderboard &lt;leaderboard_id&gt; &lt;session_cookie&gt; [year]

   Example:
   /set_leaderboard 123456 abc123def456 2024

   Where:
   - leaderboard_id is your AoC private leaderboard ID
   - session_cookie is your AoC session cookie (get it from browser DevTools)
   - year is optional (defaults to current year)

   Note: Each chat can only have one leaderboard. Setting a new one replaces the old one.

2️⃣ View current rankings (everyone):
   /rankings - Show rankings for your chat's leaderboard

3️⃣ Check status (everyone):
   /status - Show monitoring status and next poll time

4️⃣ Remove the leaderboard (admin only):
   /remove_leaderboard - Stop monitoring this chat's leaderboard

Quick Setup:
1. Go to your private leaderboard on adventofcode.com
2. Note the leaderboard ID from the URL (adventofcode.com/2024/leaderboard/private/view/12345)
3. Open DevTools (F12)
4. Go to Application, then Cookies, then adventofcode.com
5. Find the "session" cookie and copy its value
6. Send this command to the bot:
   /set_leaderboard &lt;leaderboard_id&gt; &lt;session_cookie&gt;`
